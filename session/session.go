package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/config"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/jwk"
	"github.com/pilacorp/go-lds-secp256k1/key"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
	"github.com/pilacorp/go-lds-secp256k1/logger"
	"github.com/pilacorp/go-lds-secp256k1/multisuite"
	"github.com/pilacorp/go-lds-secp256k1/suite"
)

// ErrNoKey is returned by Run when no usable key pair is available.
var ErrNoKey = errors.New("no key pair available")

// DefaultDocument returns the announcement signed by a fresh session.
func DefaultDocument() jsonmap.JSONMap {
	return jsonmap.JSONMap{
		"@context":   "https://schema.org",
		"@type":      "SpecialAnnouncement",
		"name":       "Stanford announce COVID-19 testing facility",
		"text":       "Stanford Health Care’s same-day primary care program is offering drive-through testing, by appointment, for SARS-CoV-2, the coronavirus that causes COVID-19.",
		"datePosted": "2020-03-16",
		"url":        "http://med.stanford.edu/news/all-news/2020/03/stanford-offers-drive-through-coronavirus-test.html",
		"category":   "https://www.wikidata.org/wiki/Q81068910",
		"announcementLocation": map[string]interface{}{
			"@type": "CovidTestingFacility",
			"name":  "Stanford Health Care",
			"url":   "https://stanfordhealthcare.org/",
		},
	}
}

// State is a copy of the session inputs and derived artifacts.
type State struct {
	Mnemonic      string             `json:"mnemonic,omitempty"`
	Path          string             `json:"path"`
	Keys          key.KeyPair        `json:"keys"`
	PrivateKeyJwk *model.JWK         `json:"privateKeyJwk,omitempty"`
	PublicKeyJwk  *model.JWK         `json:"publicKeyJwk,omitempty"`
	Identity      *model.DIDDocument `json:"identity,omitempty"`
	Document      jsonmap.JSONMap    `json:"document"`
	KeyError      string             `json:"keyError,omitempty"`
}

// Session holds the user's key material and target document and runs the
// sign and verify flow on demand. It is safe for concurrent use.
type Session struct {
	cfg     config.Config
	signer  *multisuite.Signer
	logger  logger.Logger
	metrics *Metrics

	signerOpts []multisuite.Option

	mu         sync.Mutex
	mnemonic   string
	typedKey   bool
	path       string
	keys       key.KeyPair
	privateJWK *model.JWK
	publicJWK  *model.JWK
	identity   *model.DIDDocument
	document   jsonmap.JSONMap
	keyErr     error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithMetrics records operations on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithSignerOptions passes extra options to the multi-suite signer, after
// the ones derived from the configuration.
func WithSignerOptions(opts ...multisuite.Option) Option {
	return func(s *Session) {
		s.signerOpts = append(s.signerOpts, opts...)
	}
}

// New creates a session with a freshly generated mnemonic and the default document.
func New(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger.Nop(),
		path:     cfg.HDPath,
		document: DefaultDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}

	docLoader, err := loader.New(
		loader.WithNetwork(cfg.AllowNetwork),
		loader.WithTimeout(cfg.LoaderTimeout),
		loader.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultContext != "" && !cfg.AllowNetwork && !docLoader.Has(cfg.DefaultContext) {
		return nil, fmt.Errorf("%w: default context %s is not available offline", loader.ErrContextNotFound, cfg.DefaultContext)
	}
	engine, err := ldproof.NewEngine(
		ldproof.WithDocumentLoader(docLoader),
		ldproof.WithDefaultContext(cfg.DefaultContext),
		ldproof.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	signerOpts := append([]multisuite.Option{
		multisuite.WithEngine(engine),
		multisuite.WithController(cfg.Controller),
		multisuite.WithLogger(s.logger),
	}, s.signerOpts...)
	s.signer, err = multisuite.New(signerOpts...)
	if err != nil {
		return nil, err
	}

	if err := s.Regenerate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Regenerate replaces the mnemonic with a new random one and derives keys
// from it at the current path. A derivation error is returned and recorded
// in the state.
func (s *Session) Regenerate() error {
	mnemonic, err := key.GenerateMnemonic()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mnemonic = mnemonic
	s.typedKey = false
	return s.deriveLocked()
}

// SetMnemonic derives keys from mnemonic at the current path. The returned
// error is also recorded in the state.
func (s *Session) SetMnemonic(mnemonic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mnemonic = mnemonic
	s.typedKey = false
	return s.deriveLocked()
}

// SetPath derives keys from the current mnemonic at path. While a typed
// private key is in use the path is only validated and stored; the key is
// kept until a mnemonic is set again.
func (s *Session) SetPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typedKey {
		if _, err := key.ParsePath(path); err != nil {
			return err
		}
		s.path = path
		return nil
	}
	s.path = path
	return s.deriveLocked()
}

// SetPrivateKeyHex uses a typed private key instead of the mnemonic.
func (s *Session) SetPrivateKeyHex(privateKeyHex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mnemonic = ""
	kp, err := key.KeyPairFromPrivateKey(privateKeyHex)
	s.typedKey = err == nil
	return s.applyKeysLocked(kp, err)
}

// SetDocument replaces the target document with a copy of doc.
func (s *Session) SetDocument(doc jsonmap.JSONMap) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	cp, err := doc.DeepCopy()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = cp
	return nil
}

// SetDocumentJSON parses raw and makes it the target document.
func (s *Session) SetDocumentJSON(raw []byte) error {
	doc, err := jsonmap.Parse(raw)
	if err != nil {
		return err
	}
	return s.SetDocument(doc)
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Mnemonic:      s.mnemonic,
		Path:          s.path,
		Keys:          s.keys,
		PrivateKeyJwk: copyJWK(s.privateJWK),
		PublicKeyJwk:  copyJWK(s.publicJWK),
		Identity:      diddoc.Clone(s.identity),
	}
	if s.document != nil {
		st.Document, _ = s.document.DeepCopy()
	}
	if s.keyErr != nil {
		st.KeyError = s.keyErr.Error()
	}
	return st
}

func (s *Session) deriveLocked() error {
	kp, err := key.DeriveFromMnemonic(s.mnemonic, "", s.path, key.WithStrictMnemonic(s.cfg.StrictMnemonic))
	return s.applyKeysLocked(kp, err)
}

// applyKeysLocked installs kp and everything derived from it. On any error
// keys, JWKs and the identity document are cleared and the error is kept.
func (s *Session) applyKeysLocked(kp key.KeyPair, err error) error {
	var privateJWK *model.JWK
	var identity *model.DIDDocument
	if err == nil {
		err = kp.Validate()
	}
	if err == nil {
		privateJWK, err = jwk.FromPrivateKeyHex(kp.PrivateKeyHex)
	}
	if err == nil {
		identity, err = diddoc.Build(kp.PublicKeyHex, diddoc.WithController(s.cfg.Controller))
	}

	if err != nil {
		s.keys = key.KeyPair{}
		s.privateJWK = nil
		s.publicJWK = nil
		s.identity = nil
		s.keyErr = err
		s.logger.WithField("path", s.path).Warnf("key derivation failed: %v", err)
		return err
	}

	s.keys = kp
	s.privateJWK = privateJWK
	s.publicJWK = privateJWK.Public()
	s.identity = identity
	s.keyErr = nil
	s.logger.WithFields(map[string]interface{}{
		"path":         s.path,
		"publicKeyHex": kp.PublicKeyHex,
	}).Info("derived key pair")
	return nil
}

func copyJWK(k *model.JWK) *model.JWK {
	if k == nil {
		return nil
	}
	cp := *k
	return &cp
}

// snapshot is the immutable input of one Run.
type snapshot struct {
	path       string
	keys       key.KeyPair
	privateJWK *model.JWK
	identity   *model.DIDDocument
	document   jsonmap.JSONMap
}

func (s *Session) snapshot() (snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyErr != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrNoKey, s.keyErr)
	}
	if s.keys.IsZero() || s.privateJWK == nil || s.identity == nil {
		return snapshot{}, ErrNoKey
	}
	doc, err := s.document.DeepCopy()
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		path:       s.path,
		keys:       s.keys,
		privateJWK: copyJWK(s.privateJWK),
		identity:   diddoc.Clone(s.identity),
		document:   doc,
	}, nil
}

// Run signs the current document with every suite and verifies each signed
// copy against the identity document. It works on a snapshot taken at the
// start, so edits made while it runs do not affect the result.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	outcomes := s.signer.SignAndVerifyAll(ctx, snap.document, snap.privateJWK, snap.identity)
	for _, out := range outcomes {
		s.record(out, true)
	}

	return &Report{
		Path:         snap.path,
		PublicKeyHex: snap.keys.PublicKeyHex,
		PublicKeyJwk: snap.privateJWK.Public(),
		Identity:     snap.identity,
		Document:     snap.document,
		Suites:       newSuiteReports(outcomes),
	}, nil
}

// Verify checks already signed documents against the current identity document.
func (s *Session) Verify(ctx context.Context, signed map[suite.Kind]jsonmap.JSONMap) ([]SuiteReport, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	outcomes := s.signer.VerifyAll(ctx, signed, snap.identity)
	for _, out := range outcomes {
		s.record(out, false)
	}
	return newSuiteReports(outcomes), nil
}

func (s *Session) record(out multisuite.Outcome, signed bool) {
	name := out.Kind.String()
	if signed {
		outcome := outcomeOK
		if out.Signed == nil {
			outcome = outcomeError
		}
		s.metrics.observe(name, "sign", outcome, out.SignDuration)
		if out.Signed == nil {
			return
		}
	}

	outcome := outcomeError
	if out.Result != nil {
		outcome = outcomeInvalid
		if out.Result.Valid {
			outcome = outcomeValid
		}
	}
	s.metrics.observe(name, "verify", outcome, out.VerifyDuration)
}
