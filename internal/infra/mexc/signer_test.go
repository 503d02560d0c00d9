package mexc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignSortsAndAppendsSignature(t *testing.T) {
	s := NewSigner("key", "secret")
	qs := s.Sign(url.Values{
		"timestamp": {"1700000000000"},
		"symbol":    {"FOOUSDT"},
		"side":      {"BUY"},
	})

	// Keys are canonically sorted before signing.
	want := "side=BUY&symbol=FOOUSDT&timestamp=1700000000000"
	require.True(t, strings.HasPrefix(qs, want+"&signature="), qs)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(want))
	assert.Equal(t, want+"&signature="+hex.EncodeToString(mac.Sum(nil)), qs)
}

func TestSignEmptyParams(t *testing.T) {
	s := NewSigner("key", "secret")
	qs := s.Sign(url.Values{})
	assert.True(t, strings.HasPrefix(qs, "signature="))
}

func TestSignerWipe(t *testing.T) {
	s := NewSigner("key", "secret")
	s.Wipe()
	for _, b := range s.secretKey {
		require.Zero(t, b)
	}
	var nilSigner *Signer
	nilSigner.Wipe()
}
