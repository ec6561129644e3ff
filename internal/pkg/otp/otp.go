package otp

import (
	"crypto/rand"
	"math/big"
)

// Digits is the length of a generated code.
const Digits = 6

// NewCode generates a numeric one-time code. Each digit is drawn
// independently and uniformly from 0-9, so leading zeros are as likely as
// any other digit. Codes are not unique across records.
func NewCode() (string, error) {
	b := make([]byte, Digits)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b[i] = '0' + byte(n.Int64())
	}
	return string(b), nil
}
