package webhook

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // used to build a legacy signature the verifier must reject
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/runner-warden/internal/core"
)

func TestVerify(t *testing.T) {
	secret := []byte("s3cr3t")
	body := []byte(`{"action":"queued"}`)

	legacy := hmac.New(sha1.New, secret)
	legacy.Write(body)
	sha1Sig := "sha1=" + hex.EncodeToString(legacy.Sum(nil))

	tests := []struct {
		name      string
		secret    []byte
		signature string
		body      []byte
		wantErr   bool
	}{
		{name: "valid", secret: secret, signature: Sign(secret, body), body: body},
		{name: "missing header", secret: secret, signature: "", body: body, wantErr: true},
		{name: "tampered body", secret: secret, signature: Sign(secret, body), body: []byte(`{"action":"queued","x":1}`), wantErr: true},
		{name: "wrong secret", secret: secret, signature: Sign([]byte("other"), body), body: body, wantErr: true},
		{name: "sha1 form", secret: secret, signature: sha1Sig, body: body, wantErr: true},
		{name: "garbage hex", secret: secret, signature: "sha256=zz", body: body, wantErr: true},
		{name: "no secret configured", secret: nil, signature: Sign(nil, body), body: body, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.secret, tt.signature, tt.body)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrAuthentication)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSign_Format(t *testing.T) {
	sig := Sign([]byte("key"), []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", sig)
}
