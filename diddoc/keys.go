package diddoc

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
)

// MethodPublicKey extracts the public key published by vm as publicKeyJwk,
// publicKeyHex or publicKeyBase58. Address-only methods carry no key and fail.
func MethodPublicKey(vm *model.VerificationMethod) (*ecdsa.PublicKey, error) {
	if vm == nil {
		return nil, fmt.Errorf("%w: verification method is nil", jwk.ErrInvalidKeyMaterial)
	}

	switch {
	case vm.PublicKeyJwk != nil:
		return jwk.PublicKey(vm.PublicKeyJwk)
	case vm.PublicKeyHex != "":
		pub, err := crypto.ParsePublicKeyHex(vm.PublicKeyHex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jwk.ErrInvalidKeyMaterial, err)
		}
		return pub, nil
	case vm.PublicKeyBase58 != "":
		compressed, err := jwk.FromBase58(vm.PublicKeyBase58)
		if err != nil {
			return nil, err
		}
		return crypto.ParsePublicKeyHex(compressed)
	default:
		return nil, fmt.Errorf("%w: %s publishes no public key", jwk.ErrInvalidKeyMaterial, vm.ID)
	}
}
