package domain

import (
	"maps"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a purchase does not name one.
const DefaultCurrency = "USD"

// PaymentMethod identifies how the backend should charge the purchase.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// PurchaseRequest is the caller's intent to buy one item.
// It is treated as immutable once submitted.
type PurchaseRequest struct {
	ItemID        string            `json:"item_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
	Card          *Card             `json:"card,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the request.
func (r PurchaseRequest) Clone() PurchaseRequest {
	out := r
	if r.Card != nil {
		card := *r.Card
		out.Card = &card
	}
	if r.Metadata != nil {
		out.Metadata = maps.Clone(r.Metadata)
	}
	return out
}
