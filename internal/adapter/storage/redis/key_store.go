package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inapppay/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyTTL bounds how long an unacknowledged key binding is kept.
const DefaultKeyTTL = 7 * 24 * time.Hour

// KeyStore binds idempotency keys to transaction ids with SET NX, so the
// first writer wins across processes sharing the Redis instance.
type KeyStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewKeyStore creates a Redis-backed key store. ttl <= 0 uses DefaultKeyTTL.
func NewKeyStore(client *goredis.Client, ttl time.Duration) *KeyStore {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &KeyStore{
		client: client,
		prefix: "idk:",
		ttl:    ttl,
	}
}

func (s *KeyStore) GetOrCreate(ctx context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	key := s.prefix + txID.String()
	result, err := s.client.SetArgs(ctx, key, candidate.String(), goredis.SetArgs{
		Mode: "NX",
		TTL:  s.ttl,
	}).Result()
	if err == nil && result == "OK" {
		return candidate, nil
	}
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("redis key set: %w", err)
	}

	// Already bound: the stored key wins.
	stored, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("redis key get: %w", err)
	}
	return domain.IdempotencyKey(stored), nil
}

func (s *KeyStore) Delete(ctx context.Context, txID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+txID.String()).Err(); err != nil {
		return fmt.Errorf("redis key delete: %w", err)
	}
	return nil
}
