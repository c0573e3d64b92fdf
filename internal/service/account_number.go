package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	accountNumberMin  = 100000
	accountNumberSpan = 900000 // [100000, 999999]
)

// AccountNumberGenerator produces candidate account numbers. Uniqueness is
// checked by the caller against the store.
type AccountNumberGenerator interface {
	Next() (string, error)
}

// RandomAccountNumbers builds numbers as prefix followed by six random digits.
type RandomAccountNumbers struct {
	prefix string
}

// NewRandomAccountNumbers creates a generator for the given prefix.
func NewRandomAccountNumbers(prefix string) *RandomAccountNumbers {
	return &RandomAccountNumbers{prefix: prefix}
}

func (g *RandomAccountNumbers) Next() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accountNumberSpan))
	if err != nil {
		return "", fmt.Errorf("random account number: %w", err)
	}
	return fmt.Sprintf("%s%06d", g.prefix, n.Int64()+accountNumberMin), nil
}
