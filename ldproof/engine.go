package ldproof

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piprate/json-gold/ld"

	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/loader"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/common/processor"
	"github.com/pilacorp/go-lds-secp256k1/diddoc"
	"github.com/pilacorp/go-lds-secp256k1/logger"
)

// AssertionMethodPurpose is the only proof purpose produced and accepted.
const AssertionMethodPurpose = "assertionMethod"

var (
	// ErrVerificationFailed wraps every structural verification failure.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrSignatureMismatch is reported when a signature does not verify.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrSigningFailed wraps failures while producing a proof.
	ErrSigningFailed = errors.New("signing failed")
)

// Result is the outcome of verifying the proofs of one suite.
type Result struct {
	Valid  bool
	Errors []error
}

// contextLoader is implemented by loaders that can bound a fetch with a context.
type contextLoader interface {
	LoadDocumentContext(ctx context.Context, u string) (*ld.RemoteDocument, error)
}

type boundLoader struct {
	ctx    context.Context
	loader contextLoader
}

func (b boundLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return b.loader.LoadDocumentContext(b.ctx, u)
}

// Engine creates and verifies linked-data proofs with detached JWS signatures.
type Engine struct {
	loader         ld.DocumentLoader
	defaultContext string
	now            func() time.Time
	logger         logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDocumentLoader sets the JSON-LD context loader.
func WithDocumentLoader(l ld.DocumentLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithDefaultContext sets the context applied to documents that declare none.
// An empty value disables it.
func WithDefaultContext(ctx string) Option {
	return func(e *Engine) {
		e.defaultContext = ctx
	}
}

// WithClock sets the time source for the created property.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// NewEngine returns an Engine. Without a loader it serves the built-in
// contexts only.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		defaultContext: loader.SchemaOrgContext,
		now:            time.Now,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loader == nil {
		l, err := loader.New(loader.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.loader = l
	}
	return e, nil
}

// verifyOptions holds per-call verification settings.
type verifyOptions struct {
	verifier SignatureVerifier
}

// VerifyOption configures a single Verify call.
type VerifyOption func(*verifyOptions)

// WithSignatureVerifier replaces the suite's own signature check.
func WithSignatureVerifier(v SignatureVerifier) VerifyOption {
	return func(o *verifyOptions) {
		o.verifier = v
	}
}

// Sign returns a copy of doc carrying a new proof of suite s made with key.
// methodID is the verification method the proof points at.
func (e *Engine) Sign(ctx context.Context, doc jsonmap.JSONMap, key *model.JWK, methodID string, s Suite) (jsonmap.JSONMap, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrSigningFailed)
	}
	if !key.IsPrivate() {
		return nil, fmt.Errorf("%w: a private key is required", ErrSigningFailed)
	}
	if methodID == "" {
		return nil, fmt.Errorf("%w: verification method is empty", ErrSigningFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signed, err := doc.DeepCopy()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	proof := model.Proof{
		Context:            s.ContextURL(),
		Type:               s.ProofType(),
		Created:            e.now().UTC().Format(time.RFC3339),
		VerificationMethod: methodID,
		ProofPurpose:       AssertionMethodPurpose,
	}

	verifyData, err := e.createVerifyData(ctx, signed, &proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	header64, err := encodeHeader(s.Algorithm())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	signature, err := s.SignDigest(signingDigest(header64, verifyData), key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	proof.JWS = detachedJWS(header64, signature)

	if err := signed.AppendProof(proof.ToMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"proofType":          proof.Type,
		"verificationMethod": methodID,
	}).Debug("created proof")
	return signed, nil
}

// Verify checks every proof of suite s in doc against identity. A signature
// that does not verify yields a Result with Valid false; structural problems
// are returned as an error wrapping ErrVerificationFailed.
func (e *Engine) Verify(ctx context.Context, doc jsonmap.JSONMap, identity *model.DIDDocument, s Suite, opts ...VerifyOption) (*Result, error) {
	o := verifyOptions{verifier: s}
	for _, opt := range opts {
		opt(&o)
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrVerificationFailed)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: identity document is nil", ErrVerificationFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proofs, err := doc.Proofs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	result := &Result{Valid: true}
	matched := 0
	for _, raw := range proofs {
		if t, _ := raw["type"].(string); t != s.ProofType() {
			continue
		}
		matched++

		err := e.verifyProof(ctx, doc, identity, s, o.verifier, raw)
		switch {
		case err == nil:
		case errors.Is(err, ErrSignatureMismatch):
			result.Valid = false
			result.Errors = append(result.Errors, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: no %s proof found", ErrVerificationFailed, s.ProofType())
	}

	e.logger.WithFields(map[string]interface{}{
		"proofType": s.ProofType(),
		"proofs":    matched,
		"valid":     result.Valid,
	}).Debug("verified proofs")
	return result, nil
}

func (e *Engine) verifyProof(ctx context.Context, doc jsonmap.JSONMap, identity *model.DIDDocument, s Suite, verifier SignatureVerifier, raw map[string]interface{}) error {
	proof, err := model.ParseProof(raw)
	if err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, proof.Created); err != nil {
		return fmt.Errorf("invalid created time: %w", err)
	}
	if proof.ProofPurpose != AssertionMethodPurpose {
		return fmt.Errorf("unsupported proof purpose %q", proof.ProofPurpose)
	}
	if proof.JWS == "" {
		return fmt.Errorf("proof has no jws")
	}

	method, err := diddoc.FindVerificationMethod(identity, proof.VerificationMethod)
	if err != nil {
		return err
	}
	if method.Type != s.VerificationMethodType() {
		return fmt.Errorf("verification method %s has type %s, want %s", method.ID, method.Type, s.VerificationMethodType())
	}
	if method.Controller != identity.ID {
		return fmt.Errorf("verification method %s is controlled by %s, not %s", method.ID, method.Controller, identity.ID)
	}
	if !diddoc.IsAssertionMethod(identity, proof.VerificationMethod) {
		return fmt.Errorf("verification method %s is not authorized for %s", method.ID, AssertionMethodPurpose)
	}

	header64, signature, err := parseDetachedJWS(proof.JWS, s.Algorithm())
	if err != nil {
		return err
	}

	proof.JWS = ""
	proof.ProofValue = ""
	verifyData, err := e.createVerifyData(ctx, doc, &proof)
	if err != nil {
		return err
	}

	return verifier.VerifyDigest(signingDigest(header64, verifyData), signature, method)
}

// createVerifyData returns SHA-256(c14n(proof options)) || SHA-256(c14n(document without proof)).
func (e *Engine) createVerifyData(ctx context.Context, doc jsonmap.JSONMap, proof *model.Proof) ([]byte, error) {
	var docLoader ld.DocumentLoader = e.loader
	if cl, ok := e.loader.(contextLoader); ok {
		docLoader = boundLoader{ctx: ctx, loader: cl}
	}

	unsigned, err := doc.WithoutProof()
	if err != nil {
		return nil, err
	}
	options, err := jsonmap.JSONMap(proof.ToMap()).DeepCopy()
	if err != nil {
		return nil, err
	}

	// Safe mode: a property that would be dropped from the canonical form
	// could be changed without breaking the signature.
	canonicalProof, err := processor.CanonicalizeDocument(options,
		processor.WithDocumentLoader(docLoader),
		processor.WithSafeMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("proof options: %w", err)
	}
	canonicalDoc, err := processor.CanonicalizeDocument(unsigned,
		processor.WithDocumentLoader(docLoader),
		processor.WithDefaultContext(e.defaultContext),
		processor.WithSafeMode(),
	)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	verifyData := processor.ComputeDigest(canonicalProof)
	return append(verifyData, processor.ComputeDigest(canonicalDoc)...), nil
}
