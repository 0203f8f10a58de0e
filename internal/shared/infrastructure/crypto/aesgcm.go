package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	ErrEmptyKey           = errors.New("encryption key is empty")
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Encrypter encrypts and decrypts raw bytes.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESEncrypter seals data with AES-256-GCM, prefixing the random nonce.
type AESEncrypter struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AESEncrypter from a raw 32-byte key.
func NewAESGCM(key []byte) (*AESEncrypter, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESEncrypter{aead: aead}, nil
}

// NewAESGCMFromBase64Key creates an AESEncrypter from a base64-encoded 32-byte key.
func NewAESGCMFromBase64Key(encodedKey string) (*AESEncrypter, error) {
	if encodedKey == "" {
		return nil, ErrEmptyKey
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewAESGCM(key)
}

// Encrypt encrypts plaintext and prepends the nonce.
func (e *AESEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens nonce-prefixed ciphertext.
func (e *AESEncrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	return e.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
}
