package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySize is the length of a serialized secp256k1 private scalar.
const PrivateKeySize = 32

// ErrInvalidKey is returned when key bytes do not describe a secp256k1 key.
var ErrInvalidKey = errors.New("invalid secp256k1 key")

// DecodeHex decodes a hex string with or without the 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, errors.New("hex string is empty")
	}
	return hex.DecodeString(s)
}

// ParsePrivateKey parses a private key of type secp256k1 from bytes.
// The length of the private key is 32 bytes.
func ParsePrivateKey(privateKeyBytes []byte) (*ecdsa.PrivateKey, error) {
	if len(privateKeyBytes) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be 32 bytes", ErrInvalidKey)
	}

	privKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return privKey, nil
}

// ParsePrivateKeyHex parses a hex-encoded secp256k1 private key.
func ParsePrivateKeyHex(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	b, err := DecodeHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ParsePrivateKey(b)
}

// ParsePublicKey parses a compressed (33 bytes) or uncompressed (65 bytes) public key.
func ParsePublicKey(publicKeyBytes []byte) (*ecdsa.PublicKey, error) {
	pub, err := btcec.ParsePubKey(publicKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub.ToECDSA(), nil
}

// ParsePublicKeyHex parses a hex-encoded compressed or uncompressed public key.
func ParsePublicKeyHex(publicKeyHex string) (*ecdsa.PublicKey, error) {
	b, err := DecodeHex(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ParsePublicKey(b)
}

// CompressPublicKey returns the 33-byte SEC1 encoding of the key.
func CompressPublicKey(pub *ecdsa.PublicKey) []byte {
	return crypto.CompressPubkey(pub)
}

// AddressFromPublicKey returns the lowercase Ethereum address of the key.
func AddressFromPublicKey(pub *ecdsa.PublicKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())
}

// VerifyKeyPair verifies if a private key and public key match
func VerifyKeyPair(privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey) bool {
	derivedPublicKey := &privateKey.PublicKey

	return derivedPublicKey.X.Cmp(publicKey.X) == 0 &&
		derivedPublicKey.Y.Cmp(publicKey.Y) == 0
}

// VerifyKeyPairFromHex verifies if a private key (hex) and public key (hex) match.
func VerifyKeyPairFromHex(privateKeyHex, publicKeyHex string) (bool, error) {
	privateKey, err := ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return false, fmt.Errorf("failed to convert private key hex: %w", err)
	}

	publicKey, err := ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("failed to parse public key hex: %w", err)
	}

	return VerifyKeyPair(privateKey, publicKey), nil
}
