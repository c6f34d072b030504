package multisuite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/ldproof"
	"github.com/pilacorp/go-lds-secp256k1/logger"
	"github.com/pilacorp/go-lds-secp256k1/suite"
)

// SuiteError attaches the suite kind to a sign or verify failure.
type SuiteError struct {
	Kind suite.Kind
	Err  error
}

func (e *SuiteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SuiteError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one suite in SignAll, VerifyAll or SignAndVerifyAll.
// Duration covers the whole suite run; SignDuration and VerifyDuration are
// zero for phases that did not run.
type Outcome struct {
	Kind           suite.Kind
	Signed         jsonmap.JSONMap
	Result         *ldproof.Result
	Err            error
	Duration       time.Duration
	SignDuration   time.Duration
	VerifyDuration time.Duration
}

// Signer signs and verifies documents with any registered suite.
type Signer struct {
	engine     *ldproof.Engine
	registry   *suite.Registry
	controller string
	overrides  map[suite.Kind]ldproof.SignatureVerifier
	logger     logger.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithEngine sets the proof engine.
func WithEngine(e *ldproof.Engine) Option {
	return func(s *Signer) {
		s.engine = e
	}
}

// WithRegistry sets the suite registry.
func WithRegistry(r *suite.Registry) Option {
	return func(s *Signer) {
		s.registry = r
	}
}

// WithController sets the DID whose methods new proofs point at.
func WithController(did string) Option {
	return func(s *Signer) {
		if did != "" {
			s.controller = did
		}
	}
}

// WithVerifierOverride replaces the signature check of kind with v.
// Every verification that goes through the override is logged as a warning.
func WithVerifierOverride(kind suite.Kind, v ldproof.SignatureVerifier) Option {
	return func(s *Signer) {
		s.overrides[kind] = v
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Signer) {
		if log != nil {
			s.logger = log
		}
	}
}

// New returns a Signer over the default registry and an offline engine
// unless configured otherwise.
func New(opts ...Option) (*Signer, error) {
	s := &Signer{
		controller: diddoc.DefaultController,
		overrides:  make(map[suite.Kind]ldproof.SignatureVerifier),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = suite.DefaultRegistry()
	}
	if s.engine == nil {
		engine, err := ldproof.NewEngine(ldproof.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.engine = engine
	}
	return s, nil
}

// Kinds returns the kinds the signer can use.
func (s *Signer) Kinds() []suite.Kind {
	return s.registry.Kinds()
}

// Sign returns a copy of doc carrying a proof of kind. doc is not modified.
func (s *Signer) Sign(ctx context.Context, doc jsonmap.JSONMap, privateKeyJwk *model.JWK, kind suite.Kind) (jsonmap.JSONMap, error) {
	impl, err := s.registry.Get(kind)
	if err != nil {
		return nil, &SuiteError{Kind: kind, Err: err}
	}
	signed, err := s.engine.Sign(ctx, doc, privateKeyJwk, s.controller+impl.MethodFragment(), impl)
	if err != nil {
		return nil, &SuiteError{Kind: kind, Err: err}
	}
	return signed, nil
}

// Verify checks the proofs of kind in signed against identity.
func (s *Signer) Verify(ctx context.Context, signed jsonmap.JSONMap, identity *model.DIDDocument, kind suite.Kind) (*ldproof.Result, error) {
	impl, err := s.registry.Get(kind)
	if err != nil {
		return nil, &SuiteError{Kind: kind, Err: err}
	}
	if err := diddoc.Validate(identity); err != nil {
		return nil, &SuiteError{Kind: kind, Err: fmt.Errorf("%w: %w", ldproof.ErrVerificationFailed, err)}
	}

	var opts []ldproof.VerifyOption
	if v, ok := s.overrides[kind]; ok {
		s.logger.WithField("suite", kind.String()).Warn("signature check replaced by an override; results are not trustworthy")
		opts = append(opts, ldproof.WithSignatureVerifier(v))
	}

	res, err := s.engine.Verify(ctx, signed, identity, impl, opts...)
	if err != nil {
		return nil, &SuiteError{Kind: kind, Err: err}
	}
	return res, nil
}

// SignAll signs doc with every registered suite concurrently. A failing suite
// does not stop the others.
func (s *Signer) SignAll(ctx context.Context, doc jsonmap.JSONMap, privateKeyJwk *model.JWK) []Outcome {
	return s.run(func(kind suite.Kind, out *Outcome) {
		s.signInto(ctx, doc, privateKeyJwk, kind, out)
	})
}

// VerifyAll verifies signed[kind] for every registered suite concurrently.
// A kind with no document yields a SuiteError.
func (s *Signer) VerifyAll(ctx context.Context, signed map[suite.Kind]jsonmap.JSONMap, identity *model.DIDDocument) []Outcome {
	return s.run(func(kind suite.Kind, out *Outcome) {
		doc, ok := signed[kind]
		if !ok || doc == nil {
			out.Err = &SuiteError{Kind: kind, Err: errors.New("no signed document")}
			return
		}
		out.Signed = doc
		s.verifyInto(ctx, doc, identity, kind, out)
	})
}

// SignAndVerifyAll signs doc with every suite and verifies each result
// against identity, one goroutine per suite.
func (s *Signer) SignAndVerifyAll(ctx context.Context, doc jsonmap.JSONMap, privateKeyJwk *model.JWK, identity *model.DIDDocument) []Outcome {
	return s.run(func(kind suite.Kind, out *Outcome) {
		s.signInto(ctx, doc, privateKeyJwk, kind, out)
		if out.Err != nil {
			return
		}
		s.verifyInto(ctx, out.Signed, identity, kind, out)
	})
}

func (s *Signer) signInto(ctx context.Context, doc jsonmap.JSONMap, privateKeyJwk *model.JWK, kind suite.Kind, out *Outcome) {
	start := time.Now()
	out.Signed, out.Err = s.Sign(ctx, doc, privateKeyJwk, kind)
	out.SignDuration = time.Since(start)
}

func (s *Signer) verifyInto(ctx context.Context, signed jsonmap.JSONMap, identity *model.DIDDocument, kind suite.Kind, out *Outcome) {
	start := time.Now()
	out.Result, out.Err = s.Verify(ctx, signed, identity, kind)
	out.VerifyDuration = time.Since(start)
}

func (s *Signer) run(fn func(kind suite.Kind, out *Outcome)) []Outcome {
	kinds := s.registry.Kinds()
	outcomes := make([]Outcome, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			start := time.Now()
			outcomes[i].Kind = kind
			fn(kind, &outcomes[i])
			outcomes[i].Duration = time.Since(start)

			log := s.logger.WithFields(map[string]interface{}{
				"suite":    kind.String(),
				"duration": outcomes[i].Duration.String(),
			})
			if outcomes[i].Err != nil {
				log.Warnf("suite failed: %v", outcomes[i].Err)
			} else {
				log.Debug("suite finished")
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
