package sandbox

import (
	"inapppay/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Card numbers with scripted results. Both pass the Luhn check.
const (
	CardDeclined          = "4000000000000002"
	CardInsufficientFunds = "4000000000009995"
)

// Metadata keys that inject faults into processPurchase.
const (
	// MetaFailTimes makes the first N requests for a key answer 503.
	MetaFailTimes = "sandbox_fail_times"
	// MetaDropResponse charges, then answers 503 once, as if the response was lost.
	MetaDropResponse = "sandbox_drop_response"
)

// DefaultCatalog is served when no catalog is configured.
func DefaultCatalog() []domain.Item {
	return []domain.Item{
		{ID: "gems_100", Name: "100 Gems", Description: "A pouch of gems", Type: domain.ItemTypeRepurchase, Price: decimal.RequireFromString("4.99"), Currency: "USD"},
		{ID: "remove_ads", Name: "Remove Ads", Description: "No more banners", Type: domain.ItemTypeOneTime, Price: decimal.RequireFromString("2.99"), Currency: "USD"},
		{ID: "vip_monthly", Name: "VIP Monthly", Description: "Monthly VIP pass", Type: domain.ItemTypeSubscription, Price: decimal.RequireFromString("9.99"), Currency: "USD"},
		{ID: "coins_jpy", Name: "Coin Pack", Type: domain.ItemTypeRepurchase, Price: decimal.NewFromInt(120), Currency: "JPY"},
	}
}
