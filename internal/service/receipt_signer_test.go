package service

import (
	"testing"

	"inapppay/internal/wire"

	"github.com/stretchr/testify/assert"
)

func TestHMACReceiptSigner_SignAndVerify(t *testing.T) {
	svc := NewHMACReceiptSigner()
	secretKey := "receipt-secret"
	payload := wire.ReceiptData{
		ReceiptID:      "rcpt_1",
		ProductID:      "gems_100",
		Amount:         "4.99",
		Currency:       "USD",
		IdempotencyKey: "idk_0123456789abcdef0123456789abcdef",
	}.Canonical()

	signature := svc.Sign(secretKey, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature, "signature should be 64-char lowercase hex (SHA-256)")
	assert.True(t, svc.Verify(secretKey, payload, signature))
}

func TestHMACReceiptSigner_VerifyFails_WrongKey(t *testing.T) {
	svc := NewHMACReceiptSigner()
	payload := "test payload"

	signature := svc.Sign("correct-key", payload)
	assert.False(t, svc.Verify("wrong-key", payload, signature))
}

func TestHMACReceiptSigner_VerifyFails_TamperedAmount(t *testing.T) {
	svc := NewHMACReceiptSigner()
	r := wire.ReceiptData{ReceiptID: "r", ProductID: "p", Amount: "4.99", Currency: "USD", IdempotencyKey: "k"}
	signature := svc.Sign("key", r.Canonical())

	r.Amount = "0.01"
	assert.False(t, svc.Verify("key", r.Canonical(), signature))
}

func TestHMACReceiptSigner_VerifyFails_WrongSignature(t *testing.T) {
	svc := NewHMACReceiptSigner()
	assert.False(t, svc.Verify("key", "payload", "invalidsignature"))
}

func TestHMACReceiptSigner_DeterministicSign(t *testing.T) {
	svc := NewHMACReceiptSigner()

	assert.Equal(t, svc.Sign("key", "data"), svc.Sign("key", "data"), "same key+payload should produce same signature")
}
