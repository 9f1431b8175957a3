package postgres

import (
	"context"
	"fmt"

	"inapppay/internal/core/domain"

	"github.com/google/uuid"
)

// KeyRepo implements ports.KeyStore.
type KeyRepo struct {
	pool Pool
}

func NewKeyRepo(pool Pool) *KeyRepo {
	return &KeyRepo{pool: pool}
}

// GetOrCreate inserts candidate unless a key is already bound, then returns
// whichever key the table holds.
func (r *KeyRepo) GetOrCreate(ctx context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	insert := `INSERT INTO idempotency_keys (transaction_id, idempotency_key)
		VALUES ($1, $2) ON CONFLICT (transaction_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, txID, candidate.String()); err != nil {
		return "", fmt.Errorf("insert idempotency key: %w", err)
	}

	var stored string
	err := r.pool.QueryRow(ctx, `SELECT idempotency_key FROM idempotency_keys WHERE transaction_id = $1`, txID).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("get idempotency key: %w", err)
	}
	return domain.IdempotencyKey(stored), nil
}

func (r *KeyRepo) Delete(ctx context.Context, txID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE transaction_id = $1`, txID); err != nil {
		return fmt.Errorf("delete idempotency key: %w", err)
	}
	return nil
}
