package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex sha256 of a credential. It is safe to use as a
// store key or a log attribute where the credential itself must not appear.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ShortFingerprint is the first 12 hex characters of [Fingerprint], for logs.
func ShortFingerprint(token string) string {
	return Fingerprint(token)[:12]
}
