package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KeyManager hands out exactly one idempotency key per transaction.
// Keys are cached in memory and, through the KeyStore, survive restarts.
type KeyManager struct {
	store   ports.KeyStore
	entropy io.Reader // nil means crypto/rand
	log     zerolog.Logger

	mu   sync.Mutex
	keys map[uuid.UUID]domain.IdempotencyKey
}

// NewKeyManager creates a key manager. store may be nil for process-lifetime keys only.
func NewKeyManager(store ports.KeyStore, log zerolog.Logger) *KeyManager {
	return &KeyManager{
		store: store,
		log:   log,
		keys:  make(map[uuid.UUID]domain.IdempotencyKey),
	}
}

// KeyFor returns the key bound to txID, generating and persisting one on first use.
func (m *KeyManager) KeyFor(ctx context.Context, txID uuid.UUID) (domain.IdempotencyKey, error) {
	m.mu.Lock()
	if k, ok := m.keys[txID]; ok {
		m.mu.Unlock()
		return k, nil
	}
	m.mu.Unlock()

	candidate, err := domain.NewIdempotencyKey(m.entropy)
	if err != nil {
		return "", fmt.Errorf("generate idempotency key: %w", err)
	}
	return m.bind(ctx, txID, candidate)
}

// Adopt binds a key loaded from persistence. The store's key wins if it disagrees.
func (m *KeyManager) Adopt(ctx context.Context, txID uuid.UUID, key domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	if key == "" {
		return m.KeyFor(ctx, txID)
	}
	return m.bind(ctx, txID, key)
}

func (m *KeyManager) bind(ctx context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	key := candidate
	if m.store != nil {
		stored, err := m.store.GetOrCreate(ctx, txID, candidate)
		if err != nil {
			return "", fmt.Errorf("persist idempotency key: %w", err)
		}
		key = stored
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A concurrent caller may have bound first; the cached key is authoritative
	// for this process.
	if existing, ok := m.keys[txID]; ok {
		return existing, nil
	}
	m.keys[txID] = key
	m.log.Debug().Str("tx_id", txID.String()).Msg("idempotency key bound")
	return key, nil
}

// Forget drops the key for a finished transaction.
func (m *KeyManager) Forget(ctx context.Context, txID uuid.UUID) error {
	m.mu.Lock()
	delete(m.keys, txID)
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, txID); err != nil {
		return fmt.Errorf("delete idempotency key: %w", err)
	}
	return nil
}
