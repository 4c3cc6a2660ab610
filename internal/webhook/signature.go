// Package webhook authenticates inbound GitHub deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/runner-warden/internal/core"
)

const (
	// SignatureHeader carries the HMAC-SHA256 of the raw body.
	SignatureHeader = github.SHA256SignatureHeader
	signaturePrefix = "sha256="
)

// Sign returns the header value GitHub would send for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the exact raw body. Only the sha256 form is
// accepted. Every failure wraps core.ErrAuthentication.
func Verify(secret []byte, signature string, body []byte) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: webhook secret is not configured", core.ErrAuthentication)
	}
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", core.ErrAuthentication, SignatureHeader)
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return fmt.Errorf("%w: unsupported signature format", core.ErrAuthentication)
	}
	if err := github.ValidateSignature(signature, body, secret); err != nil {
		return fmt.Errorf("%w: %v", core.ErrAuthentication, err)
	}
	return nil
}
