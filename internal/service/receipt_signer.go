package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACReceiptSigner implements ports.ReceiptSigner using HMAC-SHA256.
type HMACReceiptSigner struct{}

// NewHMACReceiptSigner creates a new HMAC-SHA256 receipt signer.
func NewHMACReceiptSigner() *HMACReceiptSigner {
	return &HMACReceiptSigner{}
}

// Sign computes HMAC-SHA256 of payload using secretKey.
// Returns lowercase hex-encoded signature.
func (s *HMACReceiptSigner) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secretKey, payload) in constant time.
func (s *HMACReceiptSigner) Verify(secretKey string, payload string, signature string) bool {
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
