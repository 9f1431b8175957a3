package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRateLimitStore(client)
	fixed := time.Unix(1_800_000_000, 0)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := store.Allow(ctx, "demo:user-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := store.Allow(ctx, "demo:user-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, (fixed.Unix()/60+1)*60, res.ResetAt)
	assert.Equal(t, time.Minute, res.RetryAfter(fixed))

	other, err := store.Allow(ctx, "demo:user-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "counters are per caller")
}

func TestRateLimitStore_NewWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := NewRateLimitStore(client)
	now := time.Unix(1_800_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	res, err := store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	now = now.Add(time.Minute)
	res, err = store.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitResult_RetryAfterFloor(t *testing.T) {
	r := &RateLimitResult{ResetAt: 100}
	assert.Equal(t, time.Second, r.RetryAfter(time.Unix(100, 0)))
}
