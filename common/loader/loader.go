package loader

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/piprate/json-gold/ld"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-lds-secp256k1/logger"
)

// Well-known context URLs served without network access.
const (
	DIDv1Context        = "https://www.w3.org/ns/did/v1"
	SecurityV2Context   = "https://w3id.org/security/v2"
	Recovery2020Context = "https://identity.foundation/EcdsaSecp256k1RecoverySignature2020/lds-ecdsa-secp256k1-recovery2020-0.0.jsonld"
	SchnorrV1Context    = "https://identity.foundation/SchnorrSecp256k1Signature2019/contexts/schnorr-v1.json"
	SchemaOrgContext    = "https://schema.org"
)

const (
	defaultTimeout  = 10 * time.Second
	maxDocumentSize = 1 << 20
)

var (
	// ErrContextNotFound is returned when a context is neither built in nor fetchable.
	ErrContextNotFound = errors.New("context not found")
	// ErrContextTimeout is returned when fetching a remote context exceeds the timeout.
	ErrContextTimeout = errors.New("context loading timed out")
)

//go:embed contexts/*.jsonld
var contextFS embed.FS

var builtinContexts = map[string]string{
	DIDv1Context:              "did-v1.jsonld",
	"https://w3id.org/did/v1": "did-v1.jsonld",
	SecurityV2Context:         "security-v2.jsonld",
	Recovery2020Context:       "secp256k1recovery-2020.jsonld",
	SchnorrV1Context:          "schnorr-v1.jsonld",
	SchemaOrgContext:          "schema-org.jsonld",
	"https://schema.org/":     "schema-org.jsonld",
	"http://schema.org":       "schema-org.jsonld",
	"http://schema.org/":      "schema-org.jsonld",
}

// Loader is a thread-safe ld.DocumentLoader that serves built-in contexts and
// optionally falls back to a time-bounded HTTP fetch.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]*ld.RemoteDocument

	allowNetwork bool
	timeout      time.Duration
	client       *http.Client
	logger       logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithNetwork enables fetching contexts that are not built in.
func WithNetwork(allow bool) Option {
	return func(l *Loader) {
		l.allowNetwork = allow
	}
}

// WithTimeout bounds each remote fetch.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithContext registers an additional static context document under url.
func WithContext(url string, document []byte) Option {
	return func(l *Loader) {
		doc, err := ld.DocumentFromReader(bytes.NewReader(document))
		if err != nil {
			l.logger.Warnf("ignoring static context %s: %v", url, err)
			return
		}
		l.cache[url] = &ld.RemoteDocument{DocumentURL: url, Document: doc}
	}
}

// New returns a Loader preloaded with the built-in contexts.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		cache:   make(map[string]*ld.RemoteDocument, len(builtinContexts)),
		timeout: defaultTimeout,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Nop(),
	}

	parsed := make(map[string]interface{})
	for url, name := range builtinContexts {
		doc, ok := parsed[name]
		if !ok {
			raw, err := contextFS.ReadFile("contexts/" + name)
			if err != nil {
				return nil, fmt.Errorf("failed to read built-in context %s: %w", name, err)
			}
			doc, err = ld.DocumentFromReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("failed to parse built-in context %s: %w", name, err)
			}
			parsed[name] = doc
		}
		l.cache[url] = &ld.RemoteDocument{DocumentURL: url, Document: doc}
	}

	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoadDocument implements ld.DocumentLoader.
func (l *Loader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return l.LoadDocumentContext(context.Background(), u)
}

// LoadDocumentContext returns the context document for u, fetching and caching
// it when network access is enabled.
func (l *Loader) LoadDocumentContext(ctx context.Context, u string) (*ld.RemoteDocument, error) {
	l.mu.RLock()
	doc, ok := l.cache[u]
	l.mu.RUnlock()
	if ok {
		return doc, nil
	}

	if !l.allowNetwork || !(strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")) {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, u)
	}

	doc, err := l.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[u] = doc
	l.mu.Unlock()
	return doc, nil
}

// Has reports whether u is served from the cache.
func (l *Loader) Has(u string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[u]
	return ok
}

func (l *Loader) fetch(ctx context.Context, u string) (*ld.RemoteDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	l.logger.WithField("url", u).Debug("fetching remote context")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContextNotFound, u, err)
	}
	req.Header.Set("Accept", "application/ld+json, application/json;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, classify(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrContextNotFound, u, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, classify(u, err)
	}
	doc, err := ld.DocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContextNotFound, u, err)
	}

	return &ld.RemoteDocument{DocumentURL: resp.Request.URL.String(), Document: doc}, nil
}

func classify(u string, err error) error {
	var te interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return fmt.Errorf("%w: %s: %w", ErrContextTimeout, u, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrContextNotFound, u, err)
}
