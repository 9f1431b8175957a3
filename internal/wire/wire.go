// Package wire defines the JSON documents exchanged with the purchase backend.
// The client adapter and the sandbox backend both speak these types.
package wire

import "encoding/json"

// Backend endpoints, all POST with a JSON body.
const (
	EndpointValidateItem      = "validateItemForPurchase"
	EndpointProcessPurchase   = "processPurchase"
	EndpointCheckPurchased    = "checkUserPurchased"
	EndpointCheckSubscribed   = "checkUserSubscribed"
	EndpointListPurchases     = "getPurchases"
	EndpointListSubscriptions = "getSubscriptions"
)

// Headers set on purchase requests besides Idempotency-Key.
const (
	HeaderIdempotentReplayed = "Idempotent-Replayed"
	HeaderRetryAfter         = "Retry-After"
)

// Envelope is the response wrapper every backend endpoint returns.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CardData is the card section of a purchase request.
type CardData struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	Name       string `json:"name"`
	CardType   string `json:"cardType"`
}

// PurchaseBody is the body of processPurchase.
type PurchaseBody struct {
	ProjectName    string            `json:"projectName"`
	UserID         string            `json:"userId"`
	ProductID      string            `json:"productId"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentMethod  string            `json:"paymentMethod"`
	CardData       *CardData         `json:"cardData,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey"`
}

// QueryBody is the body of every read-only endpoint.
type QueryBody struct {
	ProjectName string `json:"projectName"`
	UserID      string `json:"userId"`
	ProductID   string `json:"productId,omitempty"`
}

// ReceiptData is the data section of a successful processPurchase response.
type ReceiptData struct {
	ReceiptID      string `json:"receiptId"`
	ProductID      string `json:"productId"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotencyKey"`
	Signature      string `json:"signature,omitempty"`
	PurchasedAt    string `json:"purchasedAt,omitempty"`
}

// ItemData is the data section of validateItemForPurchase.
type ItemData struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
}

// StatusData is the data section of the check endpoints.
type StatusData struct {
	Purchased  bool `json:"purchased,omitempty"`
	Subscribed bool `json:"subscribed,omitempty"`
}

// Canonical returns the receipt fields in signing order.
func (r ReceiptData) Canonical() string {
	return r.ReceiptID + "|" + r.ProductID + "|" + r.Amount + "|" + r.Currency + "|" + r.IdempotencyKey
}
