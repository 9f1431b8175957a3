package service

import (
	"testing"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *RequestValidator {
	v := NewRequestValidator("demo", "user-1")
	v.now = func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }
	return v
}

func validCard() *domain.Card {
	return &domain.Card{Number: "4111 1111 1111 1111", Expiry: "12/28", CVV: "123", Name: "Jane Doe"}
}

func TestRequestValidator_Normalizes(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate(domain.PurchaseRequest{
		ItemID:   "  gems_100 ",
		Amount:   decimal.RequireFromString("4.99"),
		Currency: "eur",
		Card:     validCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, "gems_100", out.ItemID)
	assert.Equal(t, "EUR", out.Currency)
	assert.Equal(t, domain.PaymentMethodCard, out.PaymentMethod)
}

func TestRequestValidator_Defaults(t *testing.T) {
	v := newTestValidator()
	out, err := v.Validate(domain.PurchaseRequest{ItemID: "gems", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCurrency, out.Currency)
	assert.Equal(t, domain.PaymentMethodPayPal, out.PaymentMethod)
}

func TestRequestValidator_Rejects(t *testing.T) {
	base := func() domain.PurchaseRequest {
		return domain.PurchaseRequest{
			ItemID: "gems", Amount: decimal.RequireFromString("4.99"), Currency: "USD",
			PaymentMethod: domain.PaymentMethodCard, Card: validCard(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*domain.PurchaseRequest)
	}{
		{"empty item", func(r *domain.PurchaseRequest) { r.ItemID = "  " }},
		{"zero amount", func(r *domain.PurchaseRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *domain.PurchaseRequest) { r.Amount = decimal.NewFromInt(-1) }},
		{"unknown currency", func(r *domain.PurchaseRequest) { r.Currency = "ZZZ" }},
		{"too many decimals", func(r *domain.PurchaseRequest) { r.Amount = decimal.RequireFromString("4.999") }},
		{"fractional yen", func(r *domain.PurchaseRequest) { r.Currency = "JPY"; r.Amount = decimal.RequireFromString("100.5") }},
		{"card missing", func(r *domain.PurchaseRequest) { r.Card = nil }},
		{"luhn", func(r *domain.PurchaseRequest) { r.Card.Number = "4111111111111112" }},
		{"short number", func(r *domain.PurchaseRequest) { r.Card.Number = "42" }},
		{"past expiry", func(r *domain.PurchaseRequest) { r.Card.Expiry = "05/26" }},
		{"bad expiry", func(r *domain.PurchaseRequest) { r.Card.Expiry = "13/28" }},
		{"cvv", func(r *domain.PurchaseRequest) { r.Card.CVV = "12a" }},
		{"name", func(r *domain.PurchaseRequest) { r.Card.Name = "J" }},
		{"paypal with card", func(r *domain.PurchaseRequest) { r.PaymentMethod = domain.PaymentMethodPayPal }},
		{"unknown method", func(r *domain.PurchaseRequest) { r.PaymentMethod = "crypto" }},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			_, err := v.Validate(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.InvalidRequest(""))
		})
	}
}

func TestRequestValidator_MissingIdentity(t *testing.T) {
	req := domain.PurchaseRequest{ItemID: "gems", Amount: decimal.NewFromInt(1)}

	_, err := NewRequestValidator("", "user").Validate(req)
	assert.ErrorContains(t, err, "MISSING_PROJECT_NAME")

	_, err = NewRequestValidator("demo", "").Validate(req)
	assert.ErrorContains(t, err, "MISSING_DEVICE_ID")
}

func TestRequestValidator_CurrentMonthExpiryIsValid(t *testing.T) {
	v := newTestValidator()
	req := domain.PurchaseRequest{ItemID: "gems", Amount: decimal.NewFromInt(1), Card: validCard()}
	req.Card.Expiry = "06/26"
	_, err := v.Validate(req)
	assert.NoError(t, err)
}
