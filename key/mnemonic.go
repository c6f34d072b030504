package key

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// DefaultEntropyBits yields a 12 word mnemonic.
const DefaultEntropyBits = 128

// GenerateMnemonic returns a fresh 12 word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	return GenerateMnemonicWithEntropy(DefaultEntropyBits)
}

// GenerateMnemonicWithEntropy returns a mnemonic backed by bits of entropy.
// bits must be a multiple of 32 in [128, 256].
func GenerateMnemonicWithEntropy(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether the phrase uses the English word list and
// carries a valid checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalizeMnemonic(mnemonic))
}

type seedOptions struct {
	strict bool
}

// SeedOpt configures ToSeed.
type SeedOpt func(*seedOptions)

// WithStrictMnemonic toggles checksum and word list validation. Lenient mode
// derives a seed from any non-empty phrase.
func WithStrictMnemonic(strict bool) SeedOpt {
	return func(o *seedOptions) {
		o.strict = strict
	}
}

// ToSeed derives the 64-byte BIP-39 seed of mnemonic and passphrase.
func ToSeed(mnemonic, passphrase string, opts ...SeedOpt) ([]byte, error) {
	o := seedOptions{strict: true}
	for _, opt := range opts {
		opt(&o)
	}

	mnemonic = normalizeMnemonic(mnemonic)
	if mnemonic == "" {
		return nil, ErrMnemonicRequired
	}
	if o.strict && !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	return bip39.NewSeed(mnemonic, passphrase), nil
}

// normalizeMnemonic collapses whitespace so that the seed does not depend on
// how the phrase was typed.
func normalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}
