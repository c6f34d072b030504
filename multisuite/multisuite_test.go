package multisuite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/common/processor"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
	"github.com/pilacorp/go-lds-secp256k1/key"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
	"github.com/pilacorp/go-lds-secp256k1/suite"
	"github.com/pilacorp/go-lds-secp256k1/suite/insecure"
)

const trezorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fixture struct {
	signer   *Signer
	key      *model.JWK
	identity *model.DIDDocument
	doc      jsonmap.JSONMap
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()

	kp, err := key.DeriveFromMnemonic(trezorMnemonic, "", key.DefaultPath)
	require.NoError(t, err)
	privateJWK, err := jwk.FromPrivateKeyHex(kp.PrivateKeyHex)
	require.NoError(t, err)
	identity, err := diddoc.Build(kp.PublicKeyHex)
	require.NoError(t, err)

	signer, err := New(opts...)
	require.NoError(t, err)

	return fixture{
		signer:   signer,
		key:      privateJWK,
		identity: identity,
		doc:      jsonmap.JSONMap{"hello": "world"},
	}
}

func TestSignVerifyEachKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, kind := range suite.AllKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			signed, err := f.signer.Sign(ctx, f.doc, f.key, kind)
			require.NoError(t, err)

			proofs, err := signed.Proofs()
			require.NoError(t, err)
			require.Len(t, proofs, 1)
			assert.Equal(t, kind.ProofType(), proofs[0]["type"])

			res, err := f.signer.Verify(ctx, signed, f.identity, kind)
			require.NoError(t, err)
			assert.True(t, res.Valid)

			signed["hello"] = "there"
			res, err = f.signer.Verify(ctx, signed, f.identity, kind)
			require.NoError(t, err)
			assert.False(t, res.Valid)
		})
	}
	assert.Equal(t, jsonmap.JSONMap{"hello": "world"}, f.doc)
}

func TestSignErrorsCarryKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.signer.Sign(ctx, f.doc, f.key.Public(), suite.Schnorr2019)
	var se *SuiteError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, suite.Schnorr2019, se.Kind)
	assert.ErrorIs(t, err, ldproof.ErrSigningFailed)

	_, err = f.signer.Sign(ctx, f.doc, f.key, suite.Kind(42))
	assert.ErrorIs(t, err, suite.ErrUnknownKind)
}

func TestVerifyRejectsInvalidIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	signed, err := f.signer.Sign(ctx, f.doc, f.key, suite.Ecdsa2019)
	require.NoError(t, err)

	broken := diddoc.Clone(f.identity)
	broken.ID = "not-a-did"

	_, err = f.signer.Verify(ctx, signed, broken, suite.Ecdsa2019)
	assert.ErrorIs(t, err, ldproof.ErrVerificationFailed)
	assert.ErrorIs(t, err, diddoc.ErrInvalidDocument)

	_, err = f.signer.Verify(ctx, signed, nil, suite.Ecdsa2019)
	assert.ErrorIs(t, err, ldproof.ErrVerificationFailed)
}

func TestVerifyAgainstOtherIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := key.DeriveFromMnemonic(trezorMnemonic, "", "m/0/2147483647'/2")
	require.NoError(t, err)
	otherIdentity, err := diddoc.Build(other.PublicKeyHex)
	require.NoError(t, err)

	for _, kind := range suite.AllKinds() {
		signed, err := f.signer.Sign(ctx, f.doc, f.key, kind)
		require.NoError(t, err)

		res, err := f.signer.Verify(ctx, signed, otherIdentity, kind)
		require.NoError(t, err, kind.String())
		assert.False(t, res.Valid, kind.String())
	}
}

func TestSignAllVerifyAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	signedOutcomes := f.signer.SignAll(ctx, f.doc, f.key)
	require.Len(t, signedOutcomes, 3)

	signed := make(map[suite.Kind]jsonmap.JSONMap)
	for i, out := range signedOutcomes {
		assert.Equal(t, suite.AllKinds()[i], out.Kind)
		require.NoError(t, out.Err)
		signed[out.Kind] = out.Signed
	}

	verified := f.signer.VerifyAll(ctx, signed, f.identity)
	require.Len(t, verified, 3)
	for _, out := range verified {
		require.NoError(t, out.Err, out.Kind.String())
		assert.True(t, out.Result.Valid, out.Kind.String())
	}

	delete(signed, suite.Recovery2020)
	verified = f.signer.VerifyAll(ctx, signed, f.identity)
	for _, out := range verified {
		if out.Kind == suite.Recovery2020 {
			var se *SuiteError
			assert.True(t, errors.As(out.Err, &se))
			continue
		}
		assert.NoError(t, out.Err)
	}
}

func TestTamperingOneSignedCopy(t *testing.T) {
	for _, tampered := range suite.AllKinds() {
		t.Run(tampered.String(), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			signed := make(map[suite.Kind]jsonmap.JSONMap)
			for _, out := range f.signer.SignAll(ctx, f.doc, f.key) {
				require.NoError(t, out.Err)
				signed[out.Kind] = out.Signed
			}
			signed[tampered]["hello"] = "worle"

			for _, out := range f.signer.VerifyAll(ctx, signed, f.identity) {
				require.NoError(t, out.Err, out.Kind.String())
				assert.Equal(t, out.Kind != tampered, out.Result.Valid, out.Kind.String())
			}
		})
	}
}

func TestContextShapes(t *testing.T) {
	tests := []struct {
		name    string
		context interface{}
		signErr bool
	}{
		{"context without the term", "https://w3id.org/security/v2", true},
		{"empty context array", []interface{}{}, false},
		{"null context", nil, false},
	}
	for _, tt := range tests {
		for _, kind := range suite.AllKinds() {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				f := newFixture(t)
				ctx := context.Background()
				doc := jsonmap.JSONMap{"@context": tt.context, "hello": "world"}

				signed, err := f.signer.Sign(ctx, doc, f.key, kind)
				if tt.signErr {
					assert.ErrorIs(t, err, ldproof.ErrSigningFailed)
					assert.ErrorIs(t, err, processor.ErrCanonicalization)
					return
				}
				require.NoError(t, err)

				res, err := f.signer.Verify(ctx, signed, f.identity, kind)
				require.NoError(t, err)
				assert.True(t, res.Valid)

				signed["hello"] = "TAMPERED"
				res, err = f.signer.Verify(ctx, signed, f.identity, kind)
				require.NoError(t, err)
				assert.False(t, res.Valid)
			})
		}
	}
}

func TestPhaseDurations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, out := range f.signer.SignAndVerifyAll(ctx, f.doc, f.key, f.identity) {
		require.NoError(t, out.Err)
		assert.Positive(t, out.SignDuration, out.Kind.String())
		assert.Positive(t, out.VerifyDuration, out.Kind.String())
		assert.LessOrEqual(t, out.SignDuration+out.VerifyDuration, out.Duration)
	}

	for _, out := range f.signer.SignAll(ctx, f.doc, f.key) {
		require.NoError(t, out.Err)
		assert.Positive(t, out.SignDuration)
		assert.Zero(t, out.VerifyDuration)
	}
}

func TestOneSuiteFailingDoesNotAffectOthers(t *testing.T) {
	registry := suite.DefaultRegistry()
	registry.Register(suite.Recovery2020, failingSuite{suite.RecoverySuite{}})

	f := newFixture(t, WithRegistry(registry))
	outcomes := f.signer.SignAndVerifyAll(context.Background(), f.doc, f.key, f.identity)
	require.Len(t, outcomes, 3)

	for _, out := range outcomes {
		if out.Kind == suite.Recovery2020 {
			assert.ErrorIs(t, out.Err, errBroken)
			assert.Nil(t, out.Result)
			continue
		}
		require.NoError(t, out.Err)
		assert.True(t, out.Result.Valid)
	}
}

func TestVerifierOverride(t *testing.T) {
	f := newFixture(t, WithVerifierOverride(suite.Ecdsa2019, insecure.AcceptAll()))
	ctx := context.Background()

	for _, kind := range suite.AllKinds() {
		signed, err := f.signer.Sign(ctx, f.doc, f.key, kind)
		require.NoError(t, err)
		signed["hello"] = "tampered"

		res, err := f.signer.Verify(ctx, signed, f.identity, kind)
		require.NoError(t, err)
		assert.Equal(t, kind == suite.Ecdsa2019, res.Valid, kind.String())
	}
}

func TestConcurrentUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, out := range f.signer.SignAndVerifyAll(ctx, f.doc, f.key, f.identity) {
				assert.NoError(t, out.Err)
				if out.Result != nil {
					assert.True(t, out.Result.Valid)
				}
			}
		}()
	}
	wg.Wait()
}

var errBroken = errors.New("broken signer")

type failingSuite struct {
	suite.RecoverySuite
}

func (failingSuite) SignDigest([]byte, *model.JWK) ([]byte, error) {
	return nil, errBroken
}
