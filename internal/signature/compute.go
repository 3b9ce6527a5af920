package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// SignedPayload builds "<timestamp>.<body>" from the raw body bytes.
func SignedPayload(timestamp string, body []byte) []byte {
	payload := make([]byte, 0, len(timestamp)+1+len(body))
	payload = append(payload, timestamp...)
	payload = append(payload, '.')
	return append(payload, body...)
}

// Compute returns the lower-case hex HMAC-SHA256 of the signed payload.
func Compute(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(SignedPayload(timestamp, body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Fingerprint returns a short BLAKE3 digest of the secret, safe to log.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(secret))
	return fmt.Sprintf("%x", sum[:6])
}
