// Package insecure provides a signature verifier that accepts everything.
// It exists for demonstrations only and is never installed by default.
package insecure

import (
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
)

type acceptAll struct{}

// AcceptAll returns a verifier that reports every signature as valid.
func AcceptAll() ldproof.SignatureVerifier {
	return acceptAll{}
}

func (acceptAll) VerifyDigest(_, _ []byte, _ *model.VerificationMethod) error {
	return nil
}
