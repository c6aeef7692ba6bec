package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyPrefixWindow namespaces sliding windows in shared stores.
const KeyPrefixWindow = "ratelimit:window:"

// WindowKey derives the store key for a credential. The raw credential is
// hashed so it never appears in Redis key listings.
func WindowKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return KeyPrefixWindow + hex.EncodeToString(sum[:16])
}

// MaskCredential renders a credential as its first 8 and last 4 characters.
func MaskCredential(credential string) string {
	if len(credential) <= 12 {
		return "****"
	}
	return credential[:8] + "..." + credential[len(credential)-4:]
}
