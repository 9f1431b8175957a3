package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType describes how an item may be bought.
type ItemType string

const (
	ItemTypeOneTime      ItemType = "onetime"
	ItemTypeRepurchase   ItemType = "repurchase"
	ItemTypeSubscription ItemType = "subscription"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == ItemTypeOneTime || t == ItemTypeRepurchase || t == ItemTypeSubscription
}

// Item is a catalog entry as returned by item validation.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        ItemType        `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

// EntitlementStatus answers whether a user owns an item or subscription.
type EntitlementStatus struct {
	Owned bool           `json:"owned"`
	Data  map[string]any `json:"data,omitempty"`
}

// PurchaseRecord is one entry of the user's purchase or subscription history.
type PurchaseRecord struct {
	ReceiptID   string          `json:"receipt_id"`
	ItemID      string          `json:"item_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PurchasedAt time.Time       `json:"purchased_at,omitempty"`
}
