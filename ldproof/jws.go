package ldproof

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

var b64 = base64.RawURLEncoding

// jwsHeader is the protected header of a detached JWS with unencoded payload (RFC 7797).
type jwsHeader struct {
	Alg  string   `json:"alg"`
	B64  bool     `json:"b64"`
	Crit []string `json:"crit"`
}

func encodeHeader(alg string) (string, error) {
	raw, err := json.Marshal(jwsHeader{Alg: alg, B64: false, Crit: []string{"b64"}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal JWS header: %w", err)
	}
	return b64.EncodeToString(raw), nil
}

// signingDigest hashes header64 || "." || payload.
func signingDigest(header64 string, payload []byte) []byte {
	input := make([]byte, 0, len(header64)+1+len(payload))
	input = append(input, header64...)
	input = append(input, '.')
	input = append(input, payload...)
	sum := sha256.Sum256(input)
	return sum[:]
}

func detachedJWS(header64 string, signature []byte) string {
	return header64 + ".." + b64.EncodeToString(signature)
}

// parseDetachedJWS splits a detached JWS and checks its header against alg.
func parseDetachedJWS(jws, alg string) (string, []byte, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 || parts[1] != "" {
		return "", nil, fmt.Errorf("jws is not in detached compact form")
	}

	rawHeader, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode jws header: %w", err)
	}
	var header jwsHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal jws header: %w", err)
	}
	if header.Alg != alg {
		return "", nil, fmt.Errorf("jws alg %q does not match %q", header.Alg, alg)
	}
	if header.B64 || !slices.Contains(header.Crit, "b64") {
		return "", nil, fmt.Errorf("jws must use an unencoded payload")
	}

	signature, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode jws signature: %w", err)
	}
	return parts[0], signature, nil
}
