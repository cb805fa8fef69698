package utils

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifyHMACSHA256 checks a hex-encoded HMAC-SHA256 signature over the raw
// body. An optional scheme prefix like "sha256=" is stripped first. The
// comparison is constant time.
func VerifyHMACSHA256(body []byte, secret, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyHMACSHA1 checks a hex-encoded HMAC-SHA1 signature over the raw body
func VerifyHMACSHA1(body []byte, secret, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha1=")
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifySharedSecret compares a plain shared-secret header in constant time
func VerifySharedSecret(secret, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) == 1
}
