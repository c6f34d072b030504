package suite

import (
	"fmt"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
)

const (
	EcdsaProofType = "EcdsaSecp256k1Signature2019"
	EcdsaAlgorithm = "ES256K"
)

// EcdsaSuite implements EcdsaSecp256k1Signature2019 with ES256K signatures.
type EcdsaSuite struct{}

func (EcdsaSuite) ProofType() string              { return EcdsaProofType }
func (EcdsaSuite) ContextURL() string             { return loader.SecurityV2Context }
func (EcdsaSuite) Algorithm() string              { return EcdsaAlgorithm }
func (EcdsaSuite) VerificationMethodType() string { return diddoc.EcdsaVerificationKey2019Type }
func (EcdsaSuite) MethodFragment() string         { return diddoc.EcdsaJWKFragment }

// SignDigest returns the 64-byte r||s signature of digest.
func (EcdsaSuite) SignDigest(digest []byte, key *model.JWK) ([]byte, error) {
	priv, err := jwk.PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return crypto.SignES256K(digest, priv)
}

// VerifyDigest checks signature against the key published by method.
func (EcdsaSuite) VerifyDigest(digest, signature []byte, method *model.VerificationMethod) error {
	pub, err := diddoc.MethodPublicKey(method)
	if err != nil {
		return err
	}
	if !crypto.VerifyES256K(crypto.CompressPublicKey(pub), digest, signature) {
		return fmt.Errorf("%w: %s signature does not verify with %s", ldproof.ErrSignatureMismatch, EcdsaAlgorithm, method.ID)
	}
	return nil
}
