package crypto

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// DefaultKDFIterations is the PBKDF2 work factor for deriving data keys.
const DefaultKDFIterations = 100_000

// SaltSize is the length of generated salts.
const SaltSize = 16

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a password into a KeySize data key with PBKDF2-SHA256.
func DeriveKey(password string, salt []byte, iterations int) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password is empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt is empty")
	}
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}
	return pbkdf2.Key(sha256.New, password, salt, iterations, KeySize)
}
