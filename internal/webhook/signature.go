package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the request body
	SignatureHeader = "X-Webhook-Signature"
	UserAgent       = "Formulario-Clientes/1.0"
)

// Sign returns the HMAC-SHA256 of payload keyed with secret, hex encoded
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a signature produced by Sign in constant time
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
