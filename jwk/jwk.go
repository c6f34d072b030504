package jwk

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"

	"github.com/pilacorp/go-lds-secp256k1/common/crypto"
	"github.com/pilacorp/go-lds-secp256k1/common/model"
)

const (
	KeyType = "EC"
	Curve   = "secp256k1"

	coordinateSize = 32
)

// ErrInvalidKeyMaterial is returned for malformed keys in any representation.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

var b64 = base64.RawURLEncoding

// ToJWK converts a hex key into a JWK. When isPrivate is set the input is a
// private scalar and the result carries d.
func ToJWK(keyHex string, isPrivate bool) (*model.JWK, error) {
	if isPrivate {
		return FromPrivateKeyHex(keyHex)
	}
	return FromPublicKeyHex(keyHex)
}

// FromPrivateKeyHex converts a 32-byte hex private key into a private JWK.
func FromPrivateKeyHex(privateKeyHex string) (*model.JWK, error) {
	priv, err := crypto.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return fromPrivateKey(priv)
}

// FromPublicKeyHex converts a compressed or uncompressed hex public key into a JWK.
func FromPublicKeyHex(publicKeyHex string) (*model.JWK, error) {
	pub, err := crypto.ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return fromPublicKey(pub)
}

func fromPrivateKey(priv *ecdsa.PrivateKey) (*model.JWK, error) {
	k, err := fromPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	k.D = encodeCoordinate(priv.D)
	return k, nil
}

func fromPublicKey(pub *ecdsa.PublicKey) (*model.JWK, error) {
	k := &model.JWK{
		Kty: KeyType,
		Crv: Curve,
		X:   encodeCoordinate(pub.X),
		Y:   encodeCoordinate(pub.Y),
	}
	kid, err := Thumbprint(k)
	if err != nil {
		return nil, err
	}
	k.Kid = kid
	return k, nil
}

// PublicKey returns the public key described by the JWK. The point must lie on the curve.
func PublicKey(k *model.JWK) (*ecdsa.PublicKey, error) {
	if err := checkHeader(k); err != nil {
		return nil, err
	}
	x, err := decodeCoordinate("x", k.X)
	if err != nil {
		return nil, err
	}
	y, err := decodeCoordinate("y", k.Y)
	if err != nil {
		return nil, err
	}

	uncompressed := make([]byte, 0, 1+2*coordinateSize)
	uncompressed = append(uncompressed, 0x04)
	uncompressed = append(uncompressed, x...)
	uncompressed = append(uncompressed, y...)

	pub, err := crypto.ParsePublicKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return pub, nil
}

// PrivateKey returns the private key of the JWK after checking that d matches x and y.
func PrivateKey(k *model.JWK) (*ecdsa.PrivateKey, error) {
	pub, err := PublicKey(k)
	if err != nil {
		return nil, err
	}
	if k.D == "" {
		return nil, fmt.Errorf("%w: JWK has no private component", ErrInvalidKeyMaterial)
	}
	d, err := decodeCoordinate("d", k.D)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.ParsePrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	if !crypto.VerifyKeyPair(priv, pub) {
		return nil, fmt.Errorf("%w: private component does not match public coordinates", ErrInvalidKeyMaterial)
	}
	return priv, nil
}

// PublicKeyHex returns the compressed hex public key of the JWK.
func PublicKeyHex(k *model.JWK) (string, error) {
	pub, err := PublicKey(k)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(crypto.CompressPublicKey(pub)), nil
}

// PrivateKeyHex returns the hex private key of the JWK.
func PrivateKeyHex(k *model.JWK) (string, error) {
	priv, err := PrivateKey(k)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(padded(priv.D)), nil
}

// Thumbprint computes the RFC 7638 SHA-256 thumbprint of the public part of the key.
func Thumbprint(k *model.JWK) (string, error) {
	if err := checkHeader(k); err != nil {
		return "", err
	}
	// Members in lexicographic order, no whitespace.
	canonical, err := json.Marshal(struct {
		Crv string `json:"crv"`
		Kty string `json:"kty"`
		X   string `json:"x"`
		Y   string `json:"y"`
	}{k.Crv, k.Kty, k.X, k.Y})
	if err != nil {
		return "", fmt.Errorf("failed to marshal thumbprint input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return b64.EncodeToString(sum[:]), nil
}

// PublicKeyBase58 encodes a hex public key in compressed form as base58.
func PublicKeyBase58(publicKeyHex string) (string, error) {
	pub, err := crypto.ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return base58.Encode(crypto.CompressPublicKey(pub)), nil
}

// FromBase58 decodes a base58 public key and returns it as compressed hex.
func FromBase58(publicKeyBase58 string) (string, error) {
	raw, err := base58.Decode(publicKeyBase58)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	pub, err := crypto.ParsePublicKey(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return hex.EncodeToString(crypto.CompressPublicKey(pub)), nil
}

// EthereumAddress returns the lowercase 0x address of a hex public key.
func EthereumAddress(publicKeyHex string) (string, error) {
	pub, err := crypto.ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return crypto.AddressFromPublicKey(pub), nil
}

func checkHeader(k *model.JWK) error {
	if k == nil {
		return fmt.Errorf("%w: JWK is nil", ErrInvalidKeyMaterial)
	}
	if k.Kty != KeyType || k.Crv != Curve {
		return fmt.Errorf("%w: unsupported key %s/%s", ErrInvalidKeyMaterial, k.Kty, k.Crv)
	}
	return nil
}

func decodeCoordinate(name, v string) ([]byte, error) {
	b, err := b64.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64url: %v", ErrInvalidKeyMaterial, name, err)
	}
	if len(b) != coordinateSize {
		return nil, fmt.Errorf("%w: %s must be %d bytes", ErrInvalidKeyMaterial, name, coordinateSize)
	}
	return b, nil
}

func encodeCoordinate(v *big.Int) string {
	return b64.EncodeToString(padded(v))
}

func padded(v *big.Int) []byte {
	b := make([]byte, coordinateSize)
	v.FillBytes(b)
	return b
}
