package model

// DIDDocument is the identity document that publishes the verification methods of a controller.
type DIDDocument struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
}

// VerificationMethod represents a single verification method in a DID Document.
// Exactly one of the public key representations is expected to be set.
type VerificationMethod struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Controller      string `json:"controller"`
	PublicKeyJwk    *JWK   `json:"publicKeyJwk,omitempty"`
	PublicKeyHex    string `json:"publicKeyHex,omitempty"`
	PublicKeyBase58 string `json:"publicKeyBase58,omitempty"`
	EthereumAddress string `json:"ethereumAddress,omitempty"`
}

// JWK represents a JSON Web Key structure
type JWK struct {
	Kty string `json:"kty"`           // Key type
	Crv string `json:"crv"`           // Curve
	X   string `json:"x"`             // X coordinate
	Y   string `json:"y"`             // Y coordinate
	D   string `json:"d,omitempty"`   // Private scalar
	Kid string `json:"kid,omitempty"` // RFC 7638 thumbprint
}

// IsPrivate reports whether the key carries private material.
func (k *JWK) IsPrivate() bool {
	return k != nil && k.D != ""
}

// Public returns a copy of the key without the private scalar.
func (k *JWK) Public() *JWK {
	if k == nil {
		return nil
	}
	pub := *k
	pub.D = ""
	return &pub
}
