// Package memory holds process-lifetime implementations of the storage ports.
package memory

import (
	"context"
	"sync"
	"time"

	"inapppay/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionStore implements ports.TransactionStore with deep copies in a map.
type TransactionStore struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]domain.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[uuid.UUID]domain.Transaction)}
}

func (s *TransactionStore) Save(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[t.ID] = t.Clone()
	return nil
}

func (s *TransactionStore) Get(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, nil
	}
	c := t.Clone()
	return &c, nil
}

func (s *TransactionStore) ListOpen(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	open := []domain.Transaction{}
	for _, t := range s.txs {
		if !t.IsTerminal() {
			open = append(open, t.Clone())
		}
	}
	return open, nil
}

func (s *TransactionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.txs, id)
	s.mu.Unlock()
	return nil
}

// KeyStore implements ports.KeyStore.
type KeyStore struct {
	mu   sync.Mutex
	keys map[uuid.UUID]domain.IdempotencyKey
}

func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[uuid.UUID]domain.IdempotencyKey)}
}

func (s *KeyStore) GetOrCreate(_ context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[txID]; ok {
		return k, nil
	}
	s.keys[txID] = candidate
	return candidate, nil
}

func (s *KeyStore) Delete(_ context.Context, txID uuid.UUID) error {
	s.mu.Lock()
	delete(s.keys, txID)
	s.mu.Unlock()
	return nil
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// IdempotencyCache implements ports.IdempotencyCache with lazy expiry.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns nil, nil for missing or expired keys.
func (c *IdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value; ttl <= 0 keeps it for the life of the process.
func (c *IdempotencyCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}
