package inapppay

import (
	"context"
	"fmt"

	"inapppay/config"
	boltStore "inapppay/internal/adapter/storage/bolt"
	"inapppay/internal/adapter/storage/memory"
	"inapppay/internal/adapter/storage/postgres"
	redisStore "inapppay/internal/adapter/storage/redis"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// storeSet opens each backing database at most once and remembers how to close it.
type storeSet struct {
	cfg     *config.Config
	log     zerolog.Logger
	bolt    *boltStore.Store
	pg      *pgxpool.Pool
	rdb     *goredis.Client
	closers []func()
}

func (s *storeSet) transactionStore(ctx context.Context) (TransactionStore, error) {
	switch s.cfg.Store.Driver {
	case "", "memory":
		return memory.NewTransactionStore(), nil
	case "bolt":
		db, err := s.openBolt()
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		pool, err := s.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewTransactionRepo(pool), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", s.cfg.Store.Driver)
}

func (s *storeSet) keyStore(ctx context.Context) (KeyStore, error) {
	switch driver := s.cfg.Store.KeyStoreDriver(); driver {
	case "", "memory":
		return memory.NewKeyStore(), nil
	case "bolt":
		db, err := s.openBolt()
		if err != nil {
			return nil, err
		}
		return db.Keys(), nil
	case "redis":
		rdb, err := s.openRedis(ctx)
		if err != nil {
			return nil, err
		}
		return redisStore.NewKeyStore(rdb, redisStore.DefaultKeyTTL), nil
	case "postgres":
		pool, err := s.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewKeyRepo(pool), nil
	default:
		return nil, fmt.Errorf("unknown key store driver %q", driver)
	}
}

func (s *storeSet) openBolt() (*boltStore.Store, error) {
	if s.bolt != nil {
		return s.bolt, nil
	}
	db, err := boltStore.Open(s.cfg.Store.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	s.bolt = db
	s.closers = append(s.closers, func() { _ = db.Close() })
	return db, nil
}

func (s *storeSet) openPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if s.pg != nil {
		return s.pg, nil
	}
	pool, err := postgres.NewPool(ctx, s.cfg.Database, s.log)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s.pg = pool
	s.closers = append(s.closers, pool.Close)
	return pool, nil
}

func (s *storeSet) openRedis(ctx context.Context) (*goredis.Client, error) {
	if s.rdb != nil {
		return s.rdb, nil
	}
	rdb, err := redisStore.NewClient(ctx, s.cfg.Redis, s.log)
	if err != nil {
		return nil, err
	}
	s.rdb = rdb
	s.closers = append(s.closers, func() { _ = rdb.Close() })
	return rdb, nil
}

func (s *storeSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
