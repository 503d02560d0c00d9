package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// Signer handles KuCoin futures API authentication.
// Keys are stored as []byte to allow memory wiping.
type Signer struct {
	accessKey  []byte
	secretKey  []byte
	passphrase []byte
	keyVersion string
}

// NewSigner creates a new signer. keyVersion "2" and "3" keys require
// the passphrase itself to be HMAC-signed; older keys send it plain.
func NewSigner(accessKey, secretKey, passphrase, keyVersion string) *Signer {
	if keyVersion == "" {
		keyVersion = "3"
	}
	return &Signer{
		accessKey:  []byte(accessKey),
		secretKey:  []byte(secretKey),
		passphrase: []byte(passphrase),
		keyVersion: keyVersion,
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.accessKey)
	wipeSlice(s.secretKey)
	wipeSlice(s.passphrase)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateHeaders creates the signed headers for one request.
// The pre-signature string is timestamp + METHOD + endpoint + body,
// where endpoint includes the query string when present.
func (s *Signer) GenerateHeaders(method, endpoint, body string) map[string]string {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	return s.headersAt(timestamp, method, endpoint, body)
}

func (s *Signer) headersAt(timestamp, method, endpoint, body string) map[string]string {
	payload := timestamp + method + endpoint + body
	signature := s.computeHmacSha256(payload)

	passphrase := string(s.passphrase)
	if s.keyVersion == "2" || s.keyVersion == "3" {
		passphrase = s.computeHmacSha256(string(s.passphrase))
	}

	return map[string]string{
		"KC-API-KEY":         string(s.accessKey),
		"KC-API-SIGN":        signature,
		"KC-API-TIMESTAMP":   timestamp,
		"KC-API-PASSPHRASE":  passphrase,
		"KC-API-KEY-VERSION": s.keyVersion,
		"Content-Type":       "application/json",
	}
}

func (s *Signer) computeHmacSha256(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
