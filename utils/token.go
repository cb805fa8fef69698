package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateStateToken returns a cryptographically random token with 32 bytes
// of entropy, hex encoded. Used for OAuth anti-CSRF state parameters.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
