package suite

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of the supported signature suites.
type Kind int

const (
	Ecdsa2019 Kind = iota + 1
	Recovery2020
	Schnorr2019
)

// ErrUnknownKind is returned for suite names and kinds that are not supported.
var ErrUnknownKind = errors.New("unknown signature suite")

var kindNames = map[Kind]string{
	Ecdsa2019:    "ecdsa-2019",
	Recovery2020: "recovery-2020",
	Schnorr2019:  "schnorr-2019",
}

var kindProofTypes = map[Kind]string{
	Ecdsa2019:    EcdsaProofType,
	Recovery2020: RecoveryProofType,
	Schnorr2019:  SchnorrProofType,
}

// AllKinds lists every supported kind in a stable order.
func AllKinds() []Kind {
	return []Kind{Ecdsa2019, Recovery2020, Schnorr2019}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ProofType returns the proof type produced by suites of this kind.
func (k Kind) ProofType() string {
	return kindProofTypes[k]
}

// ParseKind accepts a short name such as "schnorr-2019" or a proof type
// such as "SchnorrSecp256k1Signature2019", ignoring case.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for k, name := range kindNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, kindProofTypes[k]) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
