package solana

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Key and signature sizes.
const (
	PublicKeySize = 32
	SignatureSize = 64
)

var (
	// ErrInvalidEncoding is returned when a value is not valid base58.
	ErrInvalidEncoding = errors.New("invalid base58 encoding")

	// ErrInvalidLength is returned when decoded bytes have the wrong size.
	ErrInvalidLength = errors.New("invalid length")

	// ErrOffCurve is returned when a public key is not an ed25519 point.
	ErrOffCurve = errors.New("public key is not on the ed25519 curve")
)

// IsOnCurve reports whether point is a valid compressed ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DecodePublicKey decodes a base58 wallet address and checks it is a signing key.
// Program-derived addresses are off-curve and rejected.
func DecodePublicKey(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key has %d bytes", ErrInvalidLength, len(raw))
	}
	if !IsOnCurve(raw) {
		return nil, ErrOffCurve
	}
	return ed25519.PublicKey(raw), nil
}

// DecodeAddress decodes any 32-byte base58 account address (on or off curve).
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("%w: address has %d bytes", ErrInvalidLength, len(raw))
	}
	return raw, nil
}

// DecodeSignature decodes a base58 ed25519 signature.
// Returns ErrInvalidEncoding or ErrInvalidLength.
func DecodeSignature(sig string) ([]byte, error) {
	raw, err := base58.Decode(sig)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}
	if len(raw) != SignatureSize {
		return nil, fmt.Errorf("%w: signature has %d bytes", ErrInvalidLength, len(raw))
	}
	return raw, nil
}

// Verify checks an ed25519 signature of message by pub.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}
