// Package bolt persists transactions and idempotency keys in an embedded
// BoltDB file so a device can resume open purchases after a restart.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inapppay/internal/core/domain"

	boltdb "github.com/boltdb/bolt"
	"github.com/google/uuid"
)

var (
	transactionsBucket = []byte("transactions")
	keysBucket         = []byte("idempotency_keys")
)

// Store implements ports.TransactionStore.
type Store struct {
	db *boltdb.DB
}

// Open opens (or creates) the database at path and ensures its buckets exist.
func Open(path string) (*Store, error) {
	db, err := boltdb.Open(path, 0600, &boltdb.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *boltdb.Tx) error {
		for _, name := range [][]byte{transactionsBucket, keysBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(_ context.Context, t *domain.Transaction) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	return s.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(transactionsBucket).Put([]byte(t.ID.String()), data)
	})
}

// Get returns nil, nil when id is unknown.
func (s *Store) Get(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var t *domain.Transaction
	err := s.db.View(func(tx *boltdb.Tx) error {
		v := tx.Bucket(transactionsBucket).Get([]byte(id.String()))
		if v == nil {
			return nil
		}
		t = &domain.Transaction{}
		return json.Unmarshal(v, t)
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) ListOpen(_ context.Context) ([]domain.Transaction, error) {
	open := []domain.Transaction{}
	err := s.db.View(func(tx *boltdb.Tx) error {
		return tx.Bucket(transactionsBucket).ForEach(func(_, v []byte) error {
			var t domain.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if !t.IsTerminal() {
				open = append(open, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list open transactions: %w", err)
	}
	return open, nil
}

// Delete is a no-op for unknown ids.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(transactionsBucket).Delete([]byte(id.String()))
	})
}

// KeyStore implements ports.KeyStore on the same bolt file as Store.
type KeyStore struct{ db *boltdb.DB }

// Keys returns the key store sharing s's database.
func (s *Store) Keys() KeyStore { return KeyStore{db: s.db} }

// GetOrCreate stores candidate unless txID already has a key, and returns the
// stored key. The check and the write share one bolt write transaction.
func (k KeyStore) GetOrCreate(_ context.Context, txID uuid.UUID, candidate domain.IdempotencyKey) (domain.IdempotencyKey, error) {
	key := candidate
	err := k.db.Update(func(tx *boltdb.Tx) error {
		b := tx.Bucket(keysBucket)
		if existing := b.Get([]byte(txID.String())); existing != nil {
			key = domain.IdempotencyKey(existing)
			return nil
		}
		return b.Put([]byte(txID.String()), []byte(candidate))
	})
	if err != nil {
		return "", fmt.Errorf("bind idempotency key: %w", err)
	}
	return key, nil
}

func (k KeyStore) Delete(_ context.Context, txID uuid.UUID) error {
	return k.db.Update(func(tx *boltdb.Tx) error {
		return tx.Bucket(keysBucket).Delete([]byte(txID.String()))
	})
}
