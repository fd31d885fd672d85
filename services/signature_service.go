package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureService recomputes gateway HMAC signatures server-side. The key
// secret covers checkout results; webhooks use a separate secret. Neither
// secret is ever sent to the browser.
type SignatureService struct {
	keySecret     string
	webhookSecret string
}

// NewSignatureService builds a verifier. Missing secrets are a configuration
// error and should abort startup, not surface as per-request 500s.
func NewSignatureService(keySecret, webhookSecret string) (*SignatureService, error) {
	if keySecret == "" {
		return nil, ErrConfiguration("razorpay key secret not set")
	}
	if webhookSecret == "" {
		return nil, ErrConfiguration("razorpay webhook secret not set")
	}
	return &SignatureService{keySecret: keySecret, webhookSecret: webhookSecret}, nil
}

// VerifyPayment checks the signature returned by the checkout UI:
// HMAC-SHA256(key_secret, order_id + "|" + payment_id) in hex. A mismatch of
// any kind (truncation, casing, tampering) returns false; it never errors.
func (s *SignatureService) VerifyPayment(orderID, paymentID, signature string) bool {
	expected := hexHMAC([]byte(s.keySecret), []byte(orderID+"|"+paymentID))
	return constantTimeEqual(expected, strings.ToLower(signature))
}

// VerifyWebhook checks the webhook header signature over the exact raw body
// bytes. Callers must pass the body as received from the wire: parsing and
// re-serializing breaks byte-for-byte equivalence with the signed payload.
func (s *SignatureService) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	expected := hexHMAC([]byte(s.webhookSecret), rawBody)
	return constantTimeEqual(expected, strings.ToLower(signatureHeader))
}

func hexHMAC(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
