package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64hmac(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHeadersAt(t *testing.T) {
	s := NewSigner("key", "secret", "pass", "3")
	h := s.headersAt("1700000000000", "POST", "/api/v1/st-orders?a=1", `{"x":1}`)

	assert.Equal(t, "key", h["KC-API-KEY"])
	assert.Equal(t, "1700000000000", h["KC-API-TIMESTAMP"])
	assert.Equal(t, "3", h["KC-API-KEY-VERSION"])

	wantSig := b64hmac("secret", "1700000000000POST/api/v1/st-orders?a=1"+`{"x":1}`)
	assert.Equal(t, wantSig, h["KC-API-SIGN"])

	// v3 keys sign the passphrase too.
	assert.Equal(t, b64hmac("secret", "pass"), h["KC-API-PASSPHRASE"])
}

func TestHeadersPlainPassphraseV1(t *testing.T) {
	s := NewSigner("key", "secret", "pass", "1")
	h := s.headersAt("1700000000000", "GET", "/api/v1/ticker", "")
	assert.Equal(t, "pass", h["KC-API-PASSPHRASE"])
}

func TestSignerDefaultsToV3(t *testing.T) {
	s := NewSigner("key", "secret", "pass", "")
	h := s.headersAt("1", "GET", "/", "")
	assert.Equal(t, "3", h["KC-API-KEY-VERSION"])
}

func TestWipe(t *testing.T) {
	s := NewSigner("key", "secret", "pass", "3")
	s.Wipe()
	for _, b := range s.secretKey {
		require.Zero(t, b)
	}
	// Wiping a nil signer must not panic.
	var nilSigner *Signer
	nilSigner.Wipe()
}
