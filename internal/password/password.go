// Package password provides salted one-way credential hashing.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost bounds re-exported so callers don't import bcrypt directly.
const (
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
	DefaultCost = bcrypt.DefaultCost
)

// Hash computes a salted bcrypt digest of the plaintext. The salt is
// generated per call and embedded in the digest, so equal passwords
// produce different hashes.
func Hash(plaintext string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the stored digest.
func Verify(digest, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)); err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}
