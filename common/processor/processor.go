package processor

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

const (
	format           = "application/n-quads"
	defaultAlgorithm = "URDNA2015"
)

// ErrCanonicalization is returned when a document cannot be normalized.
var ErrCanonicalization = errors.New("canonicalization failed")

// Processor is a JSON-LD processor for linked-data proofs.
type Processor struct {
	algorithm string
}

// NewProcessor returns a new JSON-LD processor using the given RDF dataset
// normalization algorithm.
func NewProcessor(algorithm string) *Processor {
	if algorithm == "" {
		algorithm = defaultAlgorithm
	}
	return &Processor{algorithm: algorithm}
}

// Default returns a URDNA2015 processor.
func Default() *Processor {
	return NewProcessor(defaultAlgorithm)
}

func prepareProcessorOpts(opts []ProcessorOpt) *ProcessorOptions {
	procOpts := &ProcessorOptions{
		DocumentLoader: ld.NewDefaultDocumentLoader(nil),
	}
	for _, opt := range opts {
		opt(procOpts)
	}
	return procOpts
}

// CanonicalizeDocument canonicalizes a JSON-LD document with URDNA2015.
func CanonicalizeDocument(doc map[string]interface{}, opts ...ProcessorOpt) ([]byte, error) {
	return Default().GetCanonicalDocument(doc, opts...)
}

// GetCanonicalDocument returns the canonical N-Quads form of the given JSON-LD.
// The input document is not modified.
func (p *Processor) GetCanonicalDocument(doc map[string]interface{}, opts ...ProcessorOpt) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrCanonicalization)
	}
	procOptions := prepareProcessorOpts(opts)

	ldOptions := ld.NewJsonLdOptions("")
	ldOptions.ProcessingMode = ld.JsonLd_1_1
	ldOptions.Algorithm = p.algorithm
	ldOptions.Format = format
	ldOptions.ProduceGeneralizedRdf = true
	ldOptions.DocumentLoader = procOptions.DocumentLoader
	ldOptions.SafeMode = procOptions.SafeMode

	input := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		input[k] = v
	}
	if procOptions.DefaultContext != "" && isEmptyContext(input["@context"]) {
		input["@context"] = procOptions.DefaultContext
	}

	view, err := ld.NewJsonLdProcessor().Normalize(input, ldOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to normalize JSON-LD document: %w", ErrCanonicalization, err)
	}

	result, ok := view.(string)
	if !ok {
		return nil, fmt.Errorf("%w: failed to normalize JSON-LD document, invalid view", ErrCanonicalization)
	}

	return []byte(result), nil
}

// isEmptyContext reports whether a @context value declares nothing: absent,
// null, an empty string or an empty array.
func isEmptyContext(context interface{}) bool {
	switch c := context.(type) {
	case nil:
		return true
	case string:
		return c == ""
	case []interface{}:
		return len(c) == 0
	case []string:
		return len(c) == 0
	}
	return false
}

// ComputeDigest returns SHA-256 of data.
func ComputeDigest(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}
