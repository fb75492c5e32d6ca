package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandToken generates an opaque random token: size bytes from the
// operating system's CSPRNG, encoded as URL-safe unpadded base64 so the
// result is safe to place in a cookie or query parameter. Bearer
// credentials should use size >= 32 (256 bits of entropy).
func MakeRandToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
