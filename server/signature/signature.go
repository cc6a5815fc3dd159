// Package signature verifies the HMAC signature the messaging platform
// attaches to callback requests. The platform sends hex(HMAC-SHA256(body,
// secret)) in a request header; verification is optional and disabled when
// no secret is configured.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier checks request bodies against a shared secret. A zero-value
// Verifier (empty secret) accepts everything, which is the development mode
// the platform's test console relies on.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Enabled reports whether verification is active.
func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

// Verify checks header against the HMAC-SHA256 digest of body.
//
// Rules:
//   - no secret configured: always true (verification disabled)
//   - secret configured, header absent or empty: false
//   - otherwise: constant-time comparison of the decoded digests
//
// A "sha256=" prefix on the header value is tolerated, since several
// webhook providers format their signatures that way.
func (v *Verifier) Verify(body []byte, header string) bool {
	if v.secret == "" {
		return true
	}
	if header == "" {
		return false
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// Sign computes the hex-encoded HMAC-SHA256 digest of body under secret.
// Used by tests and by callers that need to produce valid signatures.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
