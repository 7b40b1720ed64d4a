package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"server/internal/domain"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "X-Signature"

// Sign computes the hex HMAC-SHA256 of body under secret. Exposed so tests
// and outbound callbacks produce the exact signature the verifier expects.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Signature header value against the raw body.
// It must run before any byte of the payload is trusted. The comparison is
// constant-time.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrUnauthorized)
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}
