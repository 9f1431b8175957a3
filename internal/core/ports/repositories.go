package ports

import (
	"context"
	"time"

	"inapppay/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// KeyStore persists the idempotency key bound to each transaction.
type KeyStore interface {
	// GetOrCreate stores candidate for txID unless a key is already bound,
	// and returns whichever key is bound after the call. The first writer wins.
	GetOrCreate(ctx context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error)
	Delete(ctx context.Context, txID uuid.UUID) error
}

// TransactionStore persists transaction records so in-flight purchases survive a restart.
type TransactionStore interface {
	// Save upserts the transaction together with its attempts.
	Save(ctx context.Context, tx *domain.Transaction) error
	// Get returns nil, nil when the transaction does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// ListOpen returns every transaction not yet in a terminal state.
	ListOpen(ctx context.Context) ([]domain.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IdempotencyCache holds replayable responses on the sandbox backend.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
