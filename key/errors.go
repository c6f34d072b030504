package key

import "errors"

var (
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrMnemonicRequired  = errors.New("mnemonic is required")
	ErrInvalidSeed       = errors.New("invalid seed")
	ErrInvalidPath       = errors.New("invalid derivation path")
	ErrDerivationRange   = errors.New("derivation index out of range")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrKeyMismatch       = errors.New("public key does not match private key")
)
