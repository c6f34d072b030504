package jsonmap

import (
	"encoding/json"
	"fmt"
)

// ProofKey is the property a linked-data proof is embedded under.
const ProofKey = "proof"

// JSONMap represents a JSON object as a map.
type JSONMap map[string]interface{}

// Parse decodes raw JSON into a JSONMap.
func Parse(raw []byte) (JSONMap, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}
	var m JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSONMap: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("JSON value is not an object")
	}
	return m, nil
}

// ToJSON serializes the JSONMap to JSON.
func (m JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}
	return data, nil
}

// DeepCopy returns an independent copy of the map with every nested value
// normalized to the generic JSON types (map[string]interface{}, []interface{},
// float64, string, bool, nil) expected by the JSON-LD processor.
func (m JSONMap) DeepCopy() (JSONMap, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap copy: %w", err)
	}

	var doc JSONMap
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSONMap copy: %w", err)
	}
	return doc, nil
}

// WithoutProof returns a deep copy of the map without the proof property.
func (m JSONMap) WithoutProof() (JSONMap, error) {
	doc, err := m.DeepCopy()
	if err != nil {
		return nil, err
	}
	delete(doc, ProofKey)
	return doc, nil
}

// Proofs returns the proof objects embedded in the map. A single proof object
// and an array of proofs are both accepted.
func (m JSONMap) Proofs() ([]map[string]interface{}, error) {
	raw, ok := m[ProofKey]
	if !ok || raw == nil {
		return nil, nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case []map[string]interface{}:
		for _, p := range v {
			items = append(items, p)
		}
	default:
		items = []interface{}{v}
	}

	proofs := make([]map[string]interface{}, 0, len(items))
	for i, p := range items {
		switch pr := p.(type) {
		case map[string]interface{}:
			proofs = append(proofs, pr)
		case JSONMap:
			proofs = append(proofs, pr)
		default:
			return nil, fmt.Errorf("invalid proof format at index %d: %T", i, p)
		}
	}
	return proofs, nil
}

// AppendProof adds a proof object. A single proof stays an object; further
// proofs turn the property into an array.
func (m JSONMap) AppendProof(proof map[string]interface{}) error {
	if m == nil {
		return fmt.Errorf("JSONMap is nil")
	}
	if proof == nil {
		return fmt.Errorf("proof is nil")
	}

	existing, err := m.Proofs()
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		m[ProofKey] = proof
		return nil
	}

	proofs := make([]interface{}, 0, len(existing)+1)
	for _, p := range existing {
		proofs = append(proofs, p)
	}
	m[ProofKey] = append(proofs, proof)
	return nil
}
