// Package webhook verifies and dispatches inbound provider events. Every
// event is authenticated with an HMAC over the raw body before anything is
// parsed; dispatch then routes on the provider's event-type tag and drives
// reconciliation for the referenced connection.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verify recomputes an HMAC-SHA256 over the raw payload with the
// provider's shared secret and compares it to the hex signature in
// constant time. It returns false, never an error, on a missing secret,
// missing signature, malformed hex, or mismatch. An optional "sha256="
// prefix on the signature is accepted.
func Verify(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}

// Sign computes the hex HMAC-SHA256 signature for a payload. Used by the
// mock provider and by tests to produce valid inbound events.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
