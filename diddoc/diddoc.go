// Package diddoc builds the identity document that publishes one verification
// method per signature suite, and resolves methods from it without network
// access.
package diddoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
)

// DefaultController is the DID used when no controller is configured.
const DefaultController = "did:example:123"

// Verification method types.
const (
	EcdsaVerificationKey2019Type   = "EcdsaSecp256k1VerificationKey2019"
	RecoveryMethod2020Type         = "EcdsaSecp256k1RecoveryMethod2020"
	SchnorrVerificationKey2019Type = "SchnorrSecp256k1VerificationKey2019"
)

// Fragments of the methods published by Build.
const (
	EcdsaJWKFragment     = "#" + EcdsaVerificationKey2019Type
	SchnorrJWKFragment   = "#" + SchnorrVerificationKey2019Type
	RecoveryJWKFragment  = "#key-1"
	RecoveryHexFragment  = "#key-2"
	RecoveryAddrFragment = "#key-3"
	EcdsaBase58Fragment  = "#key-4"
)

var (
	// ErrMethodNotFound is returned when a verification method id does not resolve.
	ErrMethodNotFound = errors.New("verification method not found")
	// ErrInvalidDocument is returned when an identity document is malformed.
	ErrInvalidDocument = errors.New("invalid identity document")
)

type buildOptions struct {
	controller string
}

// Option configures Build.
type Option func(*buildOptions)

// WithController sets the DID of the document.
func WithController(did string) Option {
	return func(o *buildOptions) {
		if did != "" {
			o.controller = did
		}
	}
}

// Build creates the identity document for publicKeyHex.
//
// The result is deterministic for a given key and controller. Every method is
// controlled by the document DID and listed under both authentication and
// assertionMethod.
func Build(publicKeyHex string, opts ...Option) (*model.DIDDocument, error) {
	o := buildOptions{controller: DefaultController}
	for _, opt := range opts {
		opt(&o)
	}

	publicJWK, err := jwk.FromPublicKeyHex(publicKeyHex)
	if err != nil {
		return nil, err
	}
	compressedHex, err := jwk.PublicKeyHex(publicJWK)
	if err != nil {
		return nil, err
	}
	base58Key, err := jwk.PublicKeyBase58(compressedHex)
	if err != nil {
		return nil, err
	}
	address, err := jwk.EthereumAddress(compressedHex)
	if err != nil {
		return nil, err
	}

	did := o.controller
	method := func(fragment, typ string) model.VerificationMethod {
		return model.VerificationMethod{ID: did + fragment, Type: typ, Controller: did}
	}

	ecdsaJWK := method(EcdsaJWKFragment, EcdsaVerificationKey2019Type)
	ecdsaJWK.PublicKeyJwk = publicJWK.Public()

	schnorrJWK := method(SchnorrJWKFragment, SchnorrVerificationKey2019Type)
	schnorrJWK.PublicKeyJwk = publicJWK.Public()

	recoveryJWK := method(RecoveryJWKFragment, RecoveryMethod2020Type)
	recoveryJWK.PublicKeyJwk = publicJWK.Public()

	recoveryHex := method(RecoveryHexFragment, RecoveryMethod2020Type)
	recoveryHex.PublicKeyHex = compressedHex

	recoveryAddr := method(RecoveryAddrFragment, RecoveryMethod2020Type)
	recoveryAddr.EthereumAddress = address

	ecdsaBase58 := method(EcdsaBase58Fragment, EcdsaVerificationKey2019Type)
	ecdsaBase58.PublicKeyBase58 = base58Key

	methods := []model.VerificationMethod{ecdsaJWK, schnorrJWK, recoveryJWK, recoveryHex, recoveryAddr, ecdsaBase58}
	ids := make([]string, 0, len(methods))
	for _, m := range methods {
		ids = append(ids, m.ID)
	}

	return &model.DIDDocument{
		Context: []string{
			loader.DIDv1Context,
			loader.Recovery2020Context,
			loader.SchnorrV1Context,
		},
		ID:                 did,
		VerificationMethod: methods,
		Authentication:     ids,
		AssertionMethod:    append([]string(nil), ids...),
	}, nil
}

// FindVerificationMethod resolves an absolute (did#frag) or relative (#frag)
// method id against doc.
func FindVerificationMethod(doc *model.DIDDocument, id string) (*model.VerificationMethod, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: identity document is nil", ErrMethodNotFound, id)
	}
	want := absoluteID(doc.ID, id)
	for i := range doc.VerificationMethod {
		if absoluteID(doc.ID, doc.VerificationMethod[i].ID) == want {
			vm := cloneMethod(doc.VerificationMethod[i])
			return &vm, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, id)
}

// IsAssertionMethod reports whether id is listed as an assertion method of doc.
func IsAssertionMethod(doc *model.DIDDocument, id string) bool {
	if doc == nil {
		return false
	}
	want := absoluteID(doc.ID, id)
	for _, ref := range doc.AssertionMethod {
		if absoluteID(doc.ID, ref) == want {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of doc.
func Clone(doc *model.DIDDocument) *model.DIDDocument {
	if doc == nil {
		return nil
	}
	out := &model.DIDDocument{
		Context:         append([]string(nil), doc.Context...),
		ID:              doc.ID,
		Authentication:  append([]string(nil), doc.Authentication...),
		AssertionMethod: append([]string(nil), doc.AssertionMethod...),
	}
	if doc.VerificationMethod != nil {
		out.VerificationMethod = make([]model.VerificationMethod, len(doc.VerificationMethod))
		for i, vm := range doc.VerificationMethod {
			out.VerificationMethod[i] = cloneMethod(vm)
		}
	}
	return out
}

func cloneMethod(vm model.VerificationMethod) model.VerificationMethod {
	if vm.PublicKeyJwk != nil {
		k := *vm.PublicKeyJwk
		vm.PublicKeyJwk = &k
	}
	return vm
}

func absoluteID(did, id string) string {
	if strings.HasPrefix(id, "#") {
		return did + id
	}
	return id
}
