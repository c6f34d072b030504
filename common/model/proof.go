package model

import "fmt"

// Proof represents a Linked Data Proof embedded in a document.
type Proof struct {
	Context            interface{} `json:"@context,omitempty"`
	Type               string      `json:"type"`
	Created            string      `json:"created"`
	VerificationMethod string      `json:"verificationMethod"`
	ProofPurpose       string      `json:"proofPurpose"`
	JWS                string      `json:"jws,omitempty"`
	ProofValue         string      `json:"proofValue,omitempty"`
	Challenge          string      `json:"challenge,omitempty"`
	Domain             string      `json:"domain,omitempty"`
}

// ToMap converts the proof into its JSON-LD object form, omitting empty fields.
func (p *Proof) ToMap() map[string]interface{} {
	proofMap := make(map[string]interface{})
	if p.Context != nil {
		proofMap["@context"] = p.Context
	}
	if p.Type != "" {
		proofMap["type"] = p.Type
	}
	if p.Created != "" {
		proofMap["created"] = p.Created
	}
	if p.VerificationMethod != "" {
		proofMap["verificationMethod"] = p.VerificationMethod
	}
	if p.ProofPurpose != "" {
		proofMap["proofPurpose"] = p.ProofPurpose
	}
	if p.JWS != "" {
		proofMap["jws"] = p.JWS
	}
	if p.ProofValue != "" {
		proofMap["proofValue"] = p.ProofValue
	}
	if p.Challenge != "" {
		proofMap["challenge"] = p.Challenge
	}
	if p.Domain != "" {
		proofMap["domain"] = p.Domain
	}
	return proofMap
}

// ParseProof converts a single proof object into a Proof struct.
// The type, created, verificationMethod and proofPurpose fields are required.
func ParseProof(proof map[string]interface{}) (Proof, error) {
	var result Proof
	if t, ok := proof["type"].(string); ok && t != "" {
		result.Type = t
	} else {
		return Proof{}, fmt.Errorf("failed to parse proof: invalid or missing type field")
	}
	if created, ok := proof["created"].(string); ok && created != "" {
		result.Created = created
	} else {
		return Proof{}, fmt.Errorf("failed to parse proof: invalid or missing created field")
	}
	if vm, ok := proof["verificationMethod"].(string); ok && vm != "" {
		result.VerificationMethod = vm
	} else {
		return Proof{}, fmt.Errorf("failed to parse proof: invalid or missing verificationMethod field")
	}
	if pp, ok := proof["proofPurpose"].(string); ok && pp != "" {
		result.ProofPurpose = pp
	} else {
		return Proof{}, fmt.Errorf("failed to parse proof: invalid or missing proofPurpose field")
	}
	if ctx, ok := proof["@context"]; ok {
		result.Context = ctx
	}
	if jws, ok := proof["jws"].(string); ok {
		result.JWS = jws
	}
	if pv, ok := proof["proofValue"].(string); ok {
		result.ProofValue = pv
	}
	if ch, ok := proof["challenge"].(string); ok {
		result.Challenge = ch
	}
	if dm, ok := proof["domain"].(string); ok {
		result.Domain = dm
	}
	return result, nil
}
