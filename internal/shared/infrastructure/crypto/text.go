package crypto

import (
	"encoding/base64"
)

// TextCipher encrypts short text fields for storage as base64 strings.
// Decrypt never fails: values that cannot be opened come back unchanged,
// so plaintext rows written before encryption stay readable.
type TextCipher struct {
	enc Encrypter
}

// NewTextCipher wraps enc. A nil enc yields a pass-through cipher.
func NewTextCipher(enc Encrypter) *TextCipher {
	return &TextCipher{enc: enc}
}

// Encrypt seals plaintext and returns it base64-encoded. Empty input stays empty.
func (c *TextCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || c.enc == nil || plaintext == "" {
		return plaintext, nil
	}
	sealed, err := c.enc.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt, falling back to the input.
func (c *TextCipher) Decrypt(ciphertext string) string {
	if c == nil || c.enc == nil || ciphertext == "" {
		return ciphertext
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext
	}
	plain, err := c.enc.Decrypt(raw)
	if err != nil {
		return ciphertext
	}
	return string(plain)
}
