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
	SchnorrProofType = "SchnorrSecp256k1Signature2019"
	SchnorrAlgorithm = "SS256K"
)

// SchnorrSuite implements SchnorrSecp256k1Signature2019 with BIP-340 signatures.
type SchnorrSuite struct{}

func (SchnorrSuite) ProofType() string              { return SchnorrProofType }
func (SchnorrSuite) ContextURL() string             { return loader.SchnorrV1Context }
func (SchnorrSuite) Algorithm() string              { return SchnorrAlgorithm }
func (SchnorrSuite) VerificationMethodType() string { return diddoc.SchnorrVerificationKey2019Type }
func (SchnorrSuite) MethodFragment() string         { return diddoc.SchnorrJWKFragment }

func (SchnorrSuite) SignDigest(digest []byte, key *model.JWK) ([]byte, error) {
	priv, err := jwk.PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return crypto.SignSchnorr(digest, priv)
}

func (SchnorrSuite) VerifyDigest(digest, signature []byte, method *model.VerificationMethod) error {
	pub, err := diddoc.MethodPublicKey(method)
	if err != nil {
		return err
	}
	if !crypto.VerifySchnorr(crypto.CompressPublicKey(pub), digest, signature) {
		return fmt.Errorf("%w: %s signature does not verify with %s", ldproof.ErrSignatureMismatch, SchnorrAlgorithm, method.ID)
	}
	return nil
}
