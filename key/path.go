package key

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DefaultPath is the derivation path used when none is configured.
const DefaultPath = "m/0/2147483647'/1"

// ParsePath parses a BIP-32 path such as m/44'/0'/0/1 into child indices.
// Hardened components are marked with ', h or H.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}

	parts := strings.Split(path, "/")
	if parts[0] != "m" && parts[0] != "M" {
		return nil, fmt.Errorf("%w: path must start with m", ErrInvalidPath)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		index, err := parseComponent(part)
		if err != nil {
			return nil, err
		}
		indices = append(indices, index)
	}
	return indices, nil
}

func parseComponent(part string) (uint32, error) {
	var offset uint32
	if n := len(part); n > 0 && (part[n-1] == '\'' || part[n-1] == 'h' || part[n-1] == 'H') {
		offset = hdkeychain.HardenedKeyStart
		part = part[:n-1]
	}

	if part == "" {
		return 0, fmt.Errorf("%w: empty path component", ErrInvalidPath)
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: invalid path component %q", ErrInvalidPath, part)
		}
	}

	v, err := strconv.ParseUint(part, 10, 64)
	if err != nil || v >= hdkeychain.HardenedKeyStart {
		return 0, fmt.Errorf("%w: index %s", ErrDerivationRange, part)
	}
	return uint32(v) + offset, nil
}

// FormatPath renders child indices back into path notation.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range indices {
		b.WriteString("/")
		if index >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(uint64(index-hdkeychain.HardenedKeyStart), 10))
			b.WriteString("'")
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(index), 10))
	}
	return b.String()
}
