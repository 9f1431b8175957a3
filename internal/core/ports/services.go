package ports

import (
	"context"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/internal/wire"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// Transport performs a single purchase attempt against the backend.
type Transport interface {
	// Send never returns an error: every failure is classified into the Outcome.
	Send(ctx context.Context, req domain.PurchaseRequest, key domain.IdempotencyKey, timeout time.Duration) domain.Outcome
	// Call posts payload to a read-only endpoint and returns the decoded envelope.
	Call(ctx context.Context, endpoint string, payload any) (*wire.Envelope, error)
}

// ReceiptSigner signs and verifies receipt payloads with HMAC-SHA256.
type ReceiptSigner interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// SandboxBackend is the business logic behind the sandbox HTTP surface.
type SandboxBackend interface {
	ValidateItem(ctx context.Context, q wire.QueryBody) (*wire.ItemData, error)
	// ProcessPurchase charges once per idempotency key. replayed is true
	// when the receipt comes from an earlier request with the same key.
	ProcessPurchase(ctx context.Context, body wire.PurchaseBody, key string) (receipt *wire.ReceiptData, replayed bool, err error)
	CheckPurchased(ctx context.Context, q wire.QueryBody) (bool, error)
	CheckSubscribed(ctx context.Context, q wire.QueryBody) (bool, error)
	ListPurchases(ctx context.Context, q wire.QueryBody) ([]wire.ReceiptData, error)
	ListSubscriptions(ctx context.Context, q wire.QueryBody) ([]wire.ReceiptData, error)
}
