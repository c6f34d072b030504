package key

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
)

// KeyPair is a hex-encoded secp256k1 key pair. The public key is the 33-byte
// compressed encoding. The zero value means no key is available.
type KeyPair struct {
	PrivateKeyHex string `json:"privateKeyHex,omitempty"`
	PublicKeyHex  string `json:"publicKeyHex,omitempty"`
}

// IsZero reports whether the pair is empty.
func (k KeyPair) IsZero() bool {
	return k.PrivateKeyHex == "" && k.PublicKeyHex == ""
}

// Validate checks that the public key belongs to the private key.
func (k KeyPair) Validate() error {
	ok, err := crypto.VerifyKeyPairFromHex(k.PrivateKeyHex, k.PublicKeyHex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if !ok {
		return ErrKeyMismatch
	}
	return nil
}

// Derive walks path from the BIP-32 master key of seed and returns the child key pair.
func Derive(seed []byte, path string) (KeyPair, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return KeyPair{}, err
	}

	extKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		if errors.Is(err, hdkeychain.ErrInvalidSeedLen) || errors.Is(err, hdkeychain.ErrUnusableSeed) {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return KeyPair{}, fmt.Errorf("failed to create master key: %w", err)
	}

	for _, index := range indices {
		extKey, err = extKey.Derive(index)
		if err != nil {
			return KeyPair{}, fmt.Errorf("failed to derive child %d: %w", index, err)
		}
	}

	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to get private key: %w", err)
	}

	return KeyPair{
		PrivateKeyHex: hex.EncodeToString(privKey.Serialize()),
		PublicKeyHex:  hex.EncodeToString(privKey.PubKey().SerializeCompressed()),
	}, nil
}

// DeriveFromMnemonic is ToSeed followed by Derive.
func DeriveFromMnemonic(mnemonic, passphrase, path string, opts ...SeedOpt) (KeyPair, error) {
	seed, err := ToSeed(mnemonic, passphrase, opts...)
	if err != nil {
		return KeyPair{}, err
	}
	return Derive(seed, path)
}

// FromPrivateKey computes the compressed public key of a hex private key.
// The key must be 32 bytes in [1, n-1].
func FromPrivateKey(privateKeyHex string) (string, error) {
	b, err := crypto.DecodeHex(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if len(b) != crypto.PrivateKeySize {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, crypto.PrivateKeySize, len(b))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow {
		return "", fmt.Errorf("%w: scalar exceeds curve order", ErrInvalidPrivateKey)
	}
	if scalar.IsZero() {
		return "", fmt.Errorf("%w: scalar is zero", ErrInvalidPrivateKey)
	}

	privKey := secp256k1.NewPrivateKey(&scalar)
	return hex.EncodeToString(privKey.PubKey().SerializeCompressed()), nil
}

// KeyPairFromPrivateKey builds a pair from a typed private key, normalizing it
// to lowercase hex without prefix.
func KeyPairFromPrivateKey(privateKeyHex string) (KeyPair, error) {
	pub, err := FromPrivateKey(privateKeyHex)
	if err != nil {
		return KeyPair{}, err
	}
	b, _ := crypto.DecodeHex(privateKeyHex)
	return KeyPair{
		PrivateKeyHex: hex.EncodeToString(b),
		PublicKeyHex:  pub,
	}, nil
}
