// Package authpw wraps password hashing for the login path. Credential
// verification is the only place the hash format matters, so it stays
// behind this package.
package authpw

import "golang.org/x/crypto/bcrypt"

// Hash derives the stored form of a password.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
