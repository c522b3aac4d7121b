package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
)

// codeBytes random bytes encode to an 11 character URL-safe code.
const codeBytes = 8

// NewCode returns a random URL-safe verification code.
func NewCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SameCode compares codes in constant time.
func SameCode(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
