package diddoc

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
)

const testPublicKeyHex = "03501e454bf00751f24b1b489aa925215d66af2234e3891c3b21a52bedb3cd711c"

func TestBuild(t *testing.T) {
	doc, err := Build(testPublicKeyHex)
	require.NoError(t, err)
	require.NoError(t, Validate(doc))

	assert.Equal(t, DefaultController, doc.ID)
	require.Len(t, doc.VerificationMethod, 6)
	assert.Equal(t, doc.AssertionMethod, doc.Authentication)

	wantTypes := map[string]string{
		EcdsaJWKFragment:     EcdsaVerificationKey2019Type,
		SchnorrJWKFragment:   SchnorrVerificationKey2019Type,
		RecoveryJWKFragment:  RecoveryMethod2020Type,
		RecoveryHexFragment:  RecoveryMethod2020Type,
		RecoveryAddrFragment: RecoveryMethod2020Type,
		EcdsaBase58Fragment:  EcdsaVerificationKey2019Type,
	}
	for fragment, typ := range wantTypes {
		vm, err := FindVerificationMethod(doc, fragment)
		require.NoError(t, err, fragment)
		assert.Equal(t, typ, vm.Type)
		assert.Equal(t, doc.ID, vm.Controller)
		assert.True(t, IsAssertionMethod(doc, vm.ID))
	}

	hexVM, err := FindVerificationMethod(doc, DefaultController+RecoveryHexFragment)
	require.NoError(t, err)
	assert.Equal(t, testPublicKeyHex, hexVM.PublicKeyHex)

	addrVM, err := FindVerificationMethod(doc, RecoveryAddrFragment)
	require.NoError(t, err)
	addr, err := jwk.EthereumAddress(testPublicKeyHex)
	require.NoError(t, err)
	assert.Equal(t, addr, addrVM.EthereumAddress)

	jwkVM, err := FindVerificationMethod(doc, EcdsaJWKFragment)
	require.NoError(t, err)
	require.NotNil(t, jwkVM.PublicKeyJwk)
	assert.False(t, jwkVM.PublicKeyJwk.IsPrivate())
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(testPublicKeyHex, WithController("did:example:456"))
	require.NoError(t, err)
	b, err := Build(testPublicKeyHex, WithController("did:example:456"))
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.JSONEq(t, string(ja), string(jb))
	assert.Equal(t, "did:example:456", a.ID)
}

func TestBuildInvalidKey(t *testing.T) {
	for _, in := range []string{"", "zz", "04" + testPublicKeyHex[2:], "02" + testPublicKeyHex[4:]} {
		doc, err := Build(in)
		assert.ErrorIs(t, err, jwk.ErrInvalidKeyMaterial, in)
		assert.Nil(t, doc)
	}
}

func TestFindVerificationMethodNotFound(t *testing.T) {
	doc, err := Build(testPublicKeyHex)
	require.NoError(t, err)

	_, err = FindVerificationMethod(doc, "#missing")
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = FindVerificationMethod(doc, "did:example:other#key-1")
	assert.ErrorIs(t, err, ErrMethodNotFound)

	_, err = FindVerificationMethod(nil, "#key-1")
	assert.ErrorIs(t, err, ErrMethodNotFound)

	assert.False(t, IsAssertionMethod(doc, "#missing"))
	assert.False(t, IsAssertionMethod(nil, "#key-1"))
}

func TestCloneIsIndependent(t *testing.T) {
	doc, err := Build(testPublicKeyHex)
	require.NoError(t, err)

	cp := Clone(doc)
	cp.VerificationMethod[0].PublicKeyJwk.X = "changed"
	cp.AssertionMethod[0] = "changed"

	assert.NotEqual(t, "changed", doc.VerificationMethod[0].PublicKeyJwk.X)
	assert.NotEqual(t, "changed", doc.AssertionMethod[0])
	assert.Nil(t, Clone(nil))
}

func TestValidate(t *testing.T) {
	base, err := Build(testPublicKeyHex)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(d *model.DIDDocument)
	}{
		{"bad id", func(d *model.DIDDocument) { d.ID = "example" }},
		{"no methods", func(d *model.DIDDocument) { d.VerificationMethod = nil }},
		{"no key material", func(d *model.DIDDocument) { d.VerificationMethod[1].PublicKeyJwk = nil }},
		{"two key formats", func(d *model.DIDDocument) { d.VerificationMethod[3].PublicKeyBase58 = "abc" }},
		{"private jwk", func(d *model.DIDDocument) { d.VerificationMethod[0].PublicKeyJwk.D = "secret" }},
		{"bad address", func(d *model.DIDDocument) { d.VerificationMethod[4].EthereumAddress = "0x1234" }},
		{"dangling reference", func(d *model.DIDDocument) { d.AssertionMethod = append(d.AssertionMethod, "#nope") }},
		{"duplicate method", func(d *model.DIDDocument) {
			d.VerificationMethod = append(d.VerificationMethod, d.VerificationMethod[3])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Clone(base)
			tt.mutate(d)
			assert.ErrorIs(t, Validate(d), ErrInvalidDocument)
		})
	}

	assert.ErrorIs(t, Validate(nil), ErrInvalidDocument)
}

func TestParse(t *testing.T) {
	doc, err := Build(testPublicKeyHex)
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)

	_, err = Parse([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(`{"id":"did:example:1"}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestMethodPublicKey(t *testing.T) {
	doc, err := Build(testPublicKeyHex)
	require.NoError(t, err)

	for _, fragment := range []string{EcdsaJWKFragment, RecoveryHexFragment, EcdsaBase58Fragment} {
		vm, err := FindVerificationMethod(doc, fragment)
		require.NoError(t, err)
		pub, err := MethodPublicKey(vm)
		require.NoError(t, err, fragment)
		assert.Equal(t, testPublicKeyHex, hex.EncodeToString(crypto.CompressPublicKey(pub)))
	}

	addrVM, err := FindVerificationMethod(doc, RecoveryAddrFragment)
	require.NoError(t, err)
	_, err = MethodPublicKey(addrVM)
	assert.ErrorIs(t, err, jwk.ErrInvalidKeyMaterial)
}
