package domain

import (
	"errors"
	"math/big"
)

// ErrInvalidAmount is returned for amounts that are not non-negative integers.
var ErrInvalidAmount = errors.New("amount must be a non-negative integer string")

// ParseAmount parses a raw asset-native amount: base-10 digits only, no sign.
func ParseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, ErrInvalidAmount
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return nil, ErrInvalidAmount
		}
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
