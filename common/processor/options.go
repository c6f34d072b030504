package processor

import "github.com/piprate/json-gold/ld"

// ProcessorOptions holds options for canonicalization of JSON-LD docs.
type ProcessorOptions struct {
	DocumentLoader ld.DocumentLoader
	DefaultContext string
	SafeMode       bool
}

// ProcessorOpt are the options for JSON-LD operations.
type ProcessorOpt func(opts *ProcessorOptions)

// WithDocumentLoader option is for passing custom JSON-LD document loader.
func WithDocumentLoader(loader ld.DocumentLoader) ProcessorOpt {
	return func(opts *ProcessorOptions) {
		opts.DocumentLoader = loader
	}
}

// WithDefaultContext sets the context applied to documents whose @context is
// missing, null or empty, so that their plain JSON properties still map to
// IRIs and take part in the canonical form.
func WithDefaultContext(context string) ProcessorOpt {
	return func(opts *ProcessorOptions) {
		opts.DefaultContext = context
	}
}

// WithSafeMode makes canonicalization fail on properties that do not expand
// to an absolute IRI instead of silently dropping them.
func WithSafeMode() ProcessorOpt {
	return func(opts *ProcessorOptions) {
		opts.SafeMode = true
	}
}
