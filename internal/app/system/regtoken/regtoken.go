// internal/app/system/regtoken/regtoken.go
package regtoken

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is the registration-code alphabet: uppercase letters and digits.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length of a registration code.
const Length = 6

// MaxAttempts bounds insert retries when a generated code collides.
const MaxAttempts = 8

var alphabetLen = big.NewInt(int64(len(Alphabet)))

// New returns a random registration code.
func New() (string, error) {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// Valid reports whether s has the shape of a registration code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
