package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SignSchnorr produces a 64-byte BIP-340 signature over a 32-byte digest.
func SignSchnorr(digest []byte, privKey *ecdsa.PrivateKey) ([]byte, error) {
	if privKey == nil {
		return nil, fmt.Errorf("schnorr: private key is nil")
	}
	var scalar [PrivateKeySize]byte
	privKey.D.FillBytes(scalar[:])
	priv, _ := btcec.PrivKeyFromBytes(scalar[:])

	sig, err := schnorr.Sign(priv, digest)
	if err != nil {
		return nil, fmt.Errorf("schnorr: sign error: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifySchnorr verifies a BIP-340 signature. The public key is compressed or
// uncompressed; only its x coordinate takes part in verification.
func VerifySchnorr(publicKey, digest, signature []byte) bool {
	pub, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}
