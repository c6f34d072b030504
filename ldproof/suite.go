package ldproof

import "github.com/pilacorp/go-lds-secp256k1/common/model"

// Descriptor names a linked-data signature suite.
type Descriptor interface {
	// ProofType is the value of the proof type property, e.g. EcdsaSecp256k1Signature2019.
	ProofType() string
	// ContextURL is the JSON-LD context embedded in the proof.
	ContextURL() string
	// Algorithm is the JWS alg header value.
	Algorithm() string
	// VerificationMethodType is the method type the suite accepts.
	VerificationMethodType() string
}

// DigestSigner signs the SHA-256 digest of a JWS signing input.
type DigestSigner interface {
	SignDigest(digest []byte, key *model.JWK) ([]byte, error)
}

// SignatureVerifier checks a signature against a resolved verification method.
// It returns an error wrapping ErrSignatureMismatch when the signature does not
// verify, and any other error when the method cannot be used at all.
type SignatureVerifier interface {
	VerifyDigest(digest, signature []byte, method *model.VerificationMethod) error
}

// Suite is the capability every signature suite provides.
type Suite interface {
	Descriptor
	DigestSigner
	SignatureVerifier
}
