package session

import (
	"github.com/pilacorp/go-lds-secp256k1/common/jsonmap"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
	"github.com/pilacorp/go-lds-secp256k1/multisuite"
	"github.com/pilacorp/go-lds-secp256k1/suite"
)

// Report is the public outcome of a Run. It never contains the mnemonic or
// the private key.
type Report struct {
	Path         string             `json:"path"`
	PublicKeyHex string             `json:"publicKeyHex"`
	PublicKeyJwk *model.JWK         `json:"publicKeyJwk"`
	Identity     *model.DIDDocument `json:"identity"`
	Document     jsonmap.JSONMap    `json:"document"`
	Suites       []SuiteReport      `json:"suites"`
}

// SuiteReport is the outcome of one suite.
type SuiteReport struct {
	Kind      suite.Kind      `json:"suite"`
	ProofType string          `json:"proofType"`
	Signed    jsonmap.JSONMap `json:"signed,omitempty"`
	Valid     bool            `json:"valid"`
	Errors    []string        `json:"errors,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Signed returns the signed documents of the report keyed by kind.
func (r *Report) Signed() map[suite.Kind]jsonmap.JSONMap {
	signed := make(map[suite.Kind]jsonmap.JSONMap, len(r.Suites))
	for _, sr := range r.Suites {
		if sr.Signed != nil {
			signed[sr.Kind] = sr.Signed
		}
	}
	return signed
}

func newSuiteReports(outcomes []multisuite.Outcome) []SuiteReport {
	reports := make([]SuiteReport, 0, len(outcomes))
	for _, out := range outcomes {
		sr := SuiteReport{
			Kind:      out.Kind,
			ProofType: out.Kind.ProofType(),
			Signed:    out.Signed,
		}
		if out.Result != nil {
			sr.Valid = out.Result.Valid
			for _, err := range out.Result.Errors {
				sr.Errors = append(sr.Errors, err.Error())
			}
		}
		if out.Err != nil {
			sr.Error = out.Err.Error()
		}
		reports = append(reports, sr)
	}
	return reports
}
