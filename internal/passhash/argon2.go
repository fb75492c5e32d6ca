// Package passhash hashes and verifies portal passwords with Argon2id.
// Each hash carries its own random salt and parameters in a PHC-style
// encoded string, so Verify needs nothing beyond the stored value.
package passhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	timeCost   = 1
	memoryCost = 64 * 1024
	threads    = 4
	saltLen    = 16
	keyLen     = 32
)

// Hash derives an Argon2id digest of plaintext under a fresh random
// salt. An empty plaintext is a programming error and panics.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		panic("passhash: empty plaintext")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, timeCost, memoryCost, threads, keyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryCost, timeCost, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return encoded, nil
}

// Verify reports whether plaintext matches an encoded digest produced
// by Hash. Malformed encodings verify as false rather than erroring,
// and the digest comparison is constant-time.
func Verify(plaintext, encoded string) bool {
	if plaintext == "" {
		return false
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var (
		m uint32
		t uint32
		p uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
