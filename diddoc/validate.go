package diddoc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-lds-secp256k1/common/model"
)

//go:embed did-document.schema.json
var documentSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchema))
	})
	return compiledSchema, schemaErr
}

// Validate checks doc against the identity document schema and verifies that
// every authentication and assertionMethod reference resolves.
func Validate(doc *model.DIDDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to compile identity document schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: schema validation: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	seen := make(map[string]bool, len(doc.VerificationMethod))
	for _, vm := range doc.VerificationMethod {
		id := absoluteID(doc.ID, vm.ID)
		if seen[id] {
			return fmt.Errorf("%w: duplicate verification method %s", ErrInvalidDocument, id)
		}
		seen[id] = true
	}
	for _, refs := range [][]string{doc.Authentication, doc.AssertionMethod} {
		for _, ref := range refs {
			if !seen[absoluteID(doc.ID, ref)] {
				return fmt.Errorf("%w: reference %s does not resolve", ErrInvalidDocument, ref)
			}
		}
	}
	return nil
}

// Parse decodes and validates an identity document.
func Parse(raw []byte) (*model.DIDDocument, error) {
	var doc model.DIDDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
