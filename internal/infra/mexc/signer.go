package mexc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// Signer handles MEXC spot API authentication: an HMAC-SHA256 hex
// signature over the request query string, appended as the signature
// parameter. Keys are stored as []byte to allow memory wiping.
type Signer struct {
	accessKey []byte
	secretKey []byte
}

// NewSigner creates a new signer.
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{
		accessKey: []byte(accessKey),
		secretKey: []byte(secretKey),
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.accessKey {
		s.accessKey[i] = 0
	}
	for i := range s.secretKey {
		s.secretKey[i] = 0
	}
}

// APIKey returns the key for the X-MEXC-APIKEY header.
func (s *Signer) APIKey() string { return string(s.accessKey) }

// Sign appends the signature parameter over the canonical (sorted)
// encoding of params and returns the final query string.
func (s *Signer) Sign(params url.Values) string {
	qs := params.Encode() // sorted by key
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(qs))
	sig := hex.EncodeToString(mac.Sum(nil))
	if qs == "" {
		return "signature=" + sig
	}
	return qs + "&signature=" + sig
}
