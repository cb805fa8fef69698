package services

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// TokenCipher is the pluggable encryption-at-rest strategy for stored access
// tokens. The credential store never sees plaintext handling details.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(stored string) (string, error)
}

// PlaintextCipher stores tokens as-is.
// TODO: default to FernetCipher once all existing rows are migrated.
type PlaintextCipher struct{}

// Encrypt returns the token unchanged
func (PlaintextCipher) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt returns the stored value unchanged
func (PlaintextCipher) Decrypt(stored string) (string, error) { return stored, nil }

// FernetCipher encrypts tokens with a fernet key before storage
type FernetCipher struct {
	key *fernet.Key
}

// NewFernetCipher creates a cipher from a base64url-encoded fernet key
func NewFernetCipher(keyString string) (*FernetCipher, error) {
	if keyString == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}
	key, err := fernet.DecodeKey(keyString)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return &FernetCipher{key: key}, nil
}

// Encrypt seals the token into a fernet message
func (c *FernetCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	token, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return string(token), nil
}

// Decrypt opens a fernet message. Stored credentials do not expire, so the
// TTL is effectively unbounded.
func (c *FernetCipher) Decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	plaintext := fernet.VerifyAndDecrypt([]byte(stored), time.Hour*24*365*100, []*fernet.Key{c.key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt stored token")
	}
	return string(plaintext), nil
}
