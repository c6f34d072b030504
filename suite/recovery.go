package suite

import (
	"fmt"
	"strings"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
)

const (
	RecoveryProofType = "EcdsaSecp256k1RecoverySignature2020"
	RecoveryAlgorithm = "ES256K-R"
)

// RecoverySuite implements EcdsaSecp256k1RecoverySignature2020. The signature
// carries a recovery id, so methods may publish only an Ethereum address.
type RecoverySuite struct{}

func (RecoverySuite) ProofType() string              { return RecoveryProofType }
func (RecoverySuite) ContextURL() string             { return loader.Recovery2020Context }
func (RecoverySuite) Algorithm() string              { return RecoveryAlgorithm }
func (RecoverySuite) VerificationMethodType() string { return diddoc.RecoveryMethod2020Type }
func (RecoverySuite) MethodFragment() string         { return diddoc.RecoveryJWKFragment }

// SignDigest returns the 65-byte r||s||v signature of digest.
func (RecoverySuite) SignDigest(digest []byte, key *model.JWK) ([]byte, error) {
	priv, err := jwk.PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return crypto.SignRecoverable(digest, priv)
}

// VerifyDigest recovers the signer and compares it with the key or address
// published by method.
func (RecoverySuite) VerifyDigest(digest, signature []byte, method *model.VerificationMethod) error {
	if method == nil {
		return fmt.Errorf("%w: verification method is nil", jwk.ErrInvalidKeyMaterial)
	}

	var match func(address string, compressed []byte) bool
	if method.EthereumAddress != "" {
		match = func(address string, _ []byte) bool {
			return strings.EqualFold(address, method.EthereumAddress)
		}
	} else {
		pub, err := diddoc.MethodPublicKey(method)
		if err != nil {
			return err
		}
		want := string(crypto.CompressPublicKey(pub))
		match = func(_ string, compressed []byte) bool {
			return string(compressed) == want
		}
	}

	recovered, err := crypto.RecoverPublicKey(digest, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ldproof.ErrSignatureMismatch, err)
	}
	if !match(crypto.AddressFromPublicKey(recovered), crypto.CompressPublicKey(recovered)) {
		return fmt.Errorf("%w: recovered signer does not match %s", ldproof.ErrSignatureMismatch, method.ID)
	}
	return nil
}
