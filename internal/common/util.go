package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns a hex string built from n random bytes
// (so the result is 2n characters long). Used for refresh and
// confirmation tokens.
func MakeRandHexString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Used for passwords after they
// have been handed to the auth layer.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
