// Package webhooksig verifies HMAC-SHA256 webhook signatures of the
// form "sha256=<hex digest>" computed over the raw request body.
package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const scheme = "sha256="

var (
	ErrMissingSignature   = errors.New("signature header missing")
	ErrMalformedSignature = errors.New("signature header malformed")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrSecretRequired     = errors.New("signing secret is required")
)

// Sign computes the signature header value for a payload. Used by tests
// and outbound callback verification tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return scheme + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the provided header against the HMAC-SHA256 digest of the
// payload. Any defect in the header (missing, wrong scheme, wrong digest
// length, non-hex characters) is reported as an error so callers can treat
// all of them as an authentication failure.
func Verify(payload []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretRequired
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, scheme) {
		return ErrMalformedSignature
	}
	provided, err := hex.DecodeString(header[len(scheme):])
	if err != nil || len(provided) != sha256.Size {
		return ErrMalformedSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}
