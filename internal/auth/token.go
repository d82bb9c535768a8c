// Package auth generates and hashes the bearer credentials used by the
// session gate. Sessions and tokens are the same shape: 32 random bytes,
// hex-encoded, so every credential is a fixed-width 64-character string.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CredentialLen is the encoded length of a session or token value.
const CredentialLen = 64

// NewToken returns a fresh single-use bearer token.
func NewToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// NewSession returns a fresh session identifier. Sessions outlive tokens:
// a session is issued once at login while the token rotates on every
// authenticated call.
func NewSession() string {
	return NewToken()
}

// HashToken derives the cache key digest for a credential so raw tokens
// never reach the cache tier.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
