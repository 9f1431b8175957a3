package redis

import (
	"context"
	"testing"
	"time"

	"inapppay/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA = domain.IdempotencyKey("idk_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	keyB = domain.IdempotencyKey("idk_bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestKeyStore_FirstWriterWins(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewKeyStore(client, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	got, err := store.GetOrCreate(ctx, id, keyA)
	require.NoError(t, err)
	assert.Equal(t, keyA, got)

	got, err = store.GetOrCreate(ctx, id, keyB)
	require.NoError(t, err)
	assert.Equal(t, keyA, got, "second candidate must not replace the stored key")

	stored, err := s.Get("idk:" + id.String())
	require.NoError(t, err)
	assert.Equal(t, keyA.String(), stored)
	assert.Equal(t, time.Hour, s.TTL("idk:"+id.String()))
}

func TestKeyStore_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewKeyStore(client, 0)
	ctx := context.Background()
	id := uuid.New()

	_, err := store.GetOrCreate(ctx, id, keyA)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))
	assert.False(t, s.Exists("idk:"+id.String()))

	got, err := store.GetOrCreate(ctx, id, keyB)
	require.NoError(t, err)
	assert.Equal(t, keyB, got)
}

func TestKeyStore_Expiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewKeyStore(client, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := store.GetOrCreate(ctx, id, keyA)
	require.NoError(t, err)
	s.FastForward(2 * time.Minute)

	got, err := store.GetOrCreate(ctx, id, keyB)
	require.NoError(t, err)
	assert.Equal(t, keyB, got)
}

func TestKeyStore_ConnectionError(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewKeyStore(client, 0)
	s.Close()

	_, err := store.GetOrCreate(context.Background(), uuid.New(), keyA)
	assert.ErrorContains(t, err, "redis key set")
}
