package internal

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"math/big"
	"strings"
)

const minSecretBytes = 20

var ten = big.NewInt(10)

// NewNumericCode returns a string of exactly digits decimal digits drawn from
// crypto/rand, uniform over [0, 10^digits). Leading zeros are preserved.
func NewNumericCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// NewBase32Secret returns byteLength bytes of crypto/rand entropy encoded as
// unpadded base32, suitable as a TOTP shared secret. byteLength below 20
// (160 bits) is rejected.
func NewBase32Secret(byteLength int) (string, error) {
	if byteLength < minSecretBytes {
		return "", errors.New("secret must be at least 20 bytes")
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// IsNumeric reports whether s is non-empty and consists only of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
