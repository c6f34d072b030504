package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureSize is the length of an r||s signature.
	SignatureSize = 64
	// RecoverableSignatureSize is the length of an r||s||v signature.
	RecoverableSignatureSize = 65
)

// SignES256K signs a 32-byte digest and returns the 64-byte low-S r||s signature.
func SignES256K(digest []byte, privKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := SignRecoverable(digest, privKey)
	if err != nil {
		return nil, err
	}
	return sig[:SignatureSize], nil
}

// VerifyES256K verifies a 64-byte r||s signature over a 32-byte digest.
// The public key is either compressed (33 bytes) or uncompressed (65 bytes).
func VerifyES256K(publicKey, digest, signature []byte) bool {
	if len(signature) != SignatureSize || len(digest) != 32 {
		return false
	}
	return crypto.VerifySignature(publicKey, digest, signature)
}

// SignRecoverable signs a 32-byte digest, producing a 65-byte [r, s, v] signature
// with v in {0, 1}.
func SignRecoverable(digest []byte, privKey *ecdsa.PrivateKey) ([]byte, error) {
	if privKey == nil {
		return nil, fmt.Errorf("ecdsa: private key is nil")
	}
	signature, err := crypto.Sign(digest, privKey)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: sign error: %w", err)
	}

	if len(signature) != RecoverableSignatureSize {
		return nil, fmt.Errorf("ecdsa: invalid signature length, expected 65 bytes")
	}

	return signature, nil
}

// RecoverPublicKey recovers the signer public key from a 65-byte signature.
// A trailing v of 27/28 is normalized to 0/1.
func RecoverPublicKey(digest, signature []byte) (*ecdsa.PublicKey, error) {
	if len(signature) != RecoverableSignatureSize {
		return nil, fmt.Errorf("ecdsa: invalid signature length: got %d, want 65 bytes", len(signature))
	}
	sig := make([]byte, RecoverableSignatureSize)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: recover public key: %w", err)
	}
	return pub, nil
}
