package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_KeepsDataRaw(t *testing.T) {
	body := []byte(`{"success":true,"message":"ok","data":{"receiptId":"r-1","amount":"4.99"}}`)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.True(t, env.Success)

	var data ReceiptData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "r-1", data.ReceiptID)
	assert.Equal(t, "4.99", data.Amount)
}

func TestPurchaseBody_OmitsEmptyCard(t *testing.T) {
	b, err := json.Marshal(PurchaseBody{ProductID: "gems", PaymentMethod: "paypal", IdempotencyKey: "idk_1"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "cardData")
	assert.Contains(t, string(b), `"idempotencyKey":"idk_1"`)
}

func TestReceiptData_Canonical(t *testing.T) {
	r := ReceiptData{ReceiptID: "r", ProductID: "p", Amount: "1.00", Currency: "USD", IdempotencyKey: "k"}
	assert.Equal(t, "r|p|1.00|USD|k", r.Canonical())
}
