package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/config"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/key"
	"github.com/pilacorp/go-lds-secp256k1/multisuite"
	"github.com/pilacorp/go-lds-secp256k1/suite"
	"github.com/pilacorp/go-lds-secp256k1/suite/insecure"
)

const trezorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newSession(t *testing.T, cfg config.Config, opts ...Option) *Session {
	t.Helper()
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSession(t *testing.T) {
	s := newSession(t, config.Default())
	st := s.State()

	assert.Len(t, strings.Fields(st.Mnemonic), 12)
	assert.Equal(t, key.DefaultPath, st.Path)
	assert.False(t, st.Keys.IsZero())
	require.NotNil(t, st.Identity)
	assert.Equal(t, diddoc.DefaultController, st.Identity.ID)
	assert.True(t, st.PrivateKeyJwk.IsPrivate())
	assert.False(t, st.PublicKeyJwk.IsPrivate())
	assert.Empty(t, st.KeyError)
	assert.Equal(t, DefaultDocument(), st.Document)
}

func TestRunAllSuites(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	s := newSession(t, config.Default(), WithMetrics(metrics))
	require.NoError(t, s.SetMnemonic(trezorMnemonic))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Suites, 3)

	for i, sr := range report.Suites {
		assert.Equal(t, suite.AllKinds()[i], sr.Kind)
		assert.Empty(t, sr.Error, sr.Kind.String())
		assert.True(t, sr.Valid, sr.Kind.String())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(sr.Kind.String(), "verify", outcomeValid)))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(sr.Kind.String(), "sign", outcomeOK)))
	}

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abandon")
	assert.NotContains(t, string(raw), s.State().Keys.PrivateKeyHex)
	assert.NotContains(t, string(raw), `"d":`)
	assert.Contains(t, string(raw), `"suite":"schnorr-2019"`)
}

func TestVerifyTamperedReport(t *testing.T) {
	s := newSession(t, config.Default())
	ctx := context.Background()

	report, err := s.Run(ctx)
	require.NoError(t, err)

	signed := report.Signed()
	require.Len(t, signed, 3)
	for _, doc := range signed {
		doc["name"] = "tampered"
	}

	results, err := s.Verify(ctx, signed)
	require.NoError(t, err)
	for _, sr := range results {
		assert.Empty(t, sr.Error)
		assert.False(t, sr.Valid, sr.Kind.String())
		assert.NotEmpty(t, sr.Errors)
	}
}

func TestInsecureOverrideThroughSession(t *testing.T) {
	s := newSession(t, config.Default(),
		WithSignerOptions(multisuite.WithVerifierOverride(suite.Recovery2020, insecure.AcceptAll())))
	ctx := context.Background()

	report, err := s.Run(ctx)
	require.NoError(t, err)
	signed := report.Signed()
	for _, doc := range signed {
		doc["name"] = "tampered"
	}

	results, err := s.Verify(ctx, signed)
	require.NoError(t, err)
	for _, sr := range results {
		assert.Equal(t, sr.Kind == suite.Recovery2020, sr.Valid, sr.Kind.String())
	}
}

func TestKeyErrorsClearState(t *testing.T) {
	s := newSession(t, config.Default())
	ctx := context.Background()

	tests := []struct {
		name    string
		apply   func() error
		wantErr error
	}{
		{"bad checksum", func() error { return s.SetMnemonic(strings.Replace(trezorMnemonic, "about", "abandon", 1)) }, key.ErrInvalidMnemonic},
		{"empty mnemonic", func() error { return s.SetMnemonic("  ") }, key.ErrMnemonicRequired},
		{"bad path", func() error {
			if err := s.SetMnemonic(trezorMnemonic); err != nil {
				return err
			}
			return s.SetPath("m/0/x")
		}, key.ErrInvalidPath},
		{"path out of range", func() error { return s.SetPath("m/2147483648") }, key.ErrDerivationRange},
		{"bad private key", func() error { return s.SetPrivateKeyHex("0x00") }, key.ErrInvalidPrivateKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.apply(), tt.wantErr)

			st := s.State()
			assert.True(t, st.Keys.IsZero())
			assert.Nil(t, st.PrivateKeyJwk)
			assert.Nil(t, st.Identity)
			assert.NotEmpty(t, st.KeyError)

			_, err := s.Run(ctx)
			assert.ErrorIs(t, err, ErrNoKey)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, s.SetPath(key.DefaultPath), key.ErrMnemonicRequired)
	require.NoError(t, s.SetMnemonic(trezorMnemonic))
	st := s.State()
	assert.Empty(t, st.KeyError)
	assert.NotNil(t, st.Identity)
}

func TestLenientMnemonic(t *testing.T) {
	cfg := config.Default()
	cfg.StrictMnemonic = false
	s := newSession(t, cfg)

	require.NoError(t, s.SetMnemonic("correct horse battery staple"))
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	for _, sr := range report.Suites {
		assert.True(t, sr.Valid)
	}
}

func TestSetPrivateKeyHex(t *testing.T) {
	s := newSession(t, config.Default())

	require.NoError(t, s.SetPrivateKeyHex("0x3C6CB8D0F6A264C91EA8B5030FADAA8E538B020F0A387421A12DE9319DC93368"))
	st := s.State()
	assert.Empty(t, st.Mnemonic)
	assert.Equal(t, "03501e454bf00751f24b1b489aa925215d66af2234e3891c3b21a52bedb3cd711c", st.Keys.PublicKeyHex)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, st.Keys.PublicKeyHex, report.PublicKeyHex)

	require.NoError(t, s.SetPath("m/1'/2"))
	assert.ErrorIs(t, s.SetPath("m/x"), key.ErrInvalidPath)
	kept := s.State()
	assert.Equal(t, st.Keys, kept.Keys)
	assert.Equal(t, "m/1'/2", kept.Path)
	assert.Empty(t, kept.KeyError)

	require.NoError(t, s.SetMnemonic(trezorMnemonic))
	derived := s.State()
	assert.NotEqual(t, st.Keys, derived.Keys)
	assert.Equal(t, "m/1'/2", derived.Path)
}

func TestRegenerateReturnsDerivationError(t *testing.T) {
	s := newSession(t, config.Default())

	assert.ErrorIs(t, s.SetPath("m/x"), key.ErrInvalidPath)
	err := s.Regenerate()
	assert.ErrorIs(t, err, key.ErrInvalidPath)
	assert.NotEmpty(t, s.State().KeyError)

	require.NoError(t, s.SetPath(key.DefaultPath))
	require.NoError(t, s.Regenerate())
	assert.Empty(t, s.State().KeyError)
}

func TestDefaultContextMustBeAvailable(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultContext = "https://example.org/unknown-context"

	_, err := New(cfg)
	assert.ErrorIs(t, err, loader.ErrContextNotFound)

	cfg.AllowNetwork = true
	_, err = New(cfg)
	assert.NoError(t, err)

	cfg.AllowNetwork = false
	cfg.DefaultContext = ""
	_, err = New(cfg)
	assert.NoError(t, err)
}

func TestCustomController(t *testing.T) {
	cfg := config.Default()
	cfg.Controller = "did:example:456"
	s := newSession(t, cfg)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "did:example:456", report.Identity.ID)
	for _, sr := range report.Suites {
		assert.True(t, sr.Valid)
		proofs, err := sr.Signed.Proofs()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(proofs[0]["verificationMethod"].(string), "did:example:456#"))
	}
}

func TestSetDocument(t *testing.T) {
	s := newSession(t, config.Default())

	assert.Error(t, s.SetDocument(nil))
	assert.Error(t, s.SetDocumentJSON([]byte("[1,2]")))

	doc := jsonmap.JSONMap{"hello": "world"}
	require.NoError(t, s.SetDocument(doc))
	doc["hello"] = "changed"
	assert.Equal(t, "world", s.State().Document["hello"])

	require.NoError(t, s.SetDocumentJSON([]byte(`{"hello":"json"}`)))
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jsonmap.JSONMap{"hello": "json"}, report.Document)
	for _, sr := range report.Suites {
		assert.True(t, sr.Valid)
	}
}

func TestRunUsesSnapshot(t *testing.T) {
	s := newSession(t, config.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	reports := make(chan *Report, 16)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				report, err := s.Run(ctx)
				if assert.NoError(t, err) {
					reports <- report
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 8; j++ {
			assert.NoError(t, s.SetDocument(jsonmap.JSONMap{"counter": fmt.Sprint(j)}))
			assert.NoError(t, s.SetPath(fmt.Sprintf("m/0/%d", j)))
		}
	}()
	wg.Wait()
	close(reports)

	for report := range reports {
		hexVM, err := diddoc.FindVerificationMethod(report.Identity, diddoc.RecoveryHexFragment)
		require.NoError(t, err)
		assert.Equal(t, report.PublicKeyHex, hexVM.PublicKeyHex)

		for _, sr := range report.Suites {
			assert.True(t, sr.Valid, sr.Kind.String())
			unsigned, err := sr.Signed.WithoutProof()
			require.NoError(t, err)
			assert.Equal(t, report.Document, unsigned)
		}
	}
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.observe("x", "sign", outcomeOK, 0)

	var nilMetrics *Metrics
	nilMetrics.observe("x", "sign", outcomeOK, 0)
}
