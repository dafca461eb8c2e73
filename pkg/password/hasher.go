// Package password provides the one-way hash primitive shared by
// credential storage and the one-time-code engine. Raw passwords and
// raw codes never reach a repository; only hashes produced here do.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies secrets with a salted one-way function.
type Hasher interface {
	// Hash returns a salted hash of the plaintext.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches the stored hash. A
	// mismatch is (false, nil), not an error.
	Verify(plaintext, hash string) (bool, error)
}

// BcryptHasher implements Hasher using bcrypt. bcrypt embeds its own
// per-hash salt, so no external salt handling is needed.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a BcryptHasher with the default cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash implements Hasher.Hash.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("plaintext cannot be empty")
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify implements Hasher.Verify.
func (h *BcryptHasher) Verify(plaintext, hash string) (bool, error) {
	if plaintext == "" || hash == "" {
		return false, errors.New("plaintext and hash cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
