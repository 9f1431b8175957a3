package sandbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inapppay/internal/adapter/storage/memory"
	"inapppay/internal/core/ports/mocks"
	"inapppay/internal/service"
	"inapppay/internal/wire"
	"inapppay/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testKey = "idk_0123456789abcdef0123456789abcdef"

func newTestBackend() *Backend {
	return NewBackend(Config{ReceiptSecret: "s3cret", IdempotencyTTL: time.Hour},
		memory.NewIdempotencyCache(), service.NewHMACReceiptSigner(), zerolog.Nop())
}

func gemsBody() wire.PurchaseBody {
	return wire.PurchaseBody{
		ProjectName:   "demo",
		UserID:        "user-1",
		ProductID:     "gems_100",
		Amount:        "4.99",
		Currency:      "USD",
		PaymentMethod: "paypal",
	}
}

func TestBackend_ProcessPurchase_SignedReceipt(t *testing.T) {
	b := newTestBackend()

	r, replayed, err := b.ProcessPurchase(context.Background(), gemsBody(), testKey)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "gems_100", r.ProductID)
	assert.Equal(t, testKey, r.IdempotencyKey)
	assert.True(t, service.NewHMACReceiptSigner().Verify("s3cret", r.Canonical(), r.Signature))
}

func TestBackend_ProcessPurchase_ReplaysSameKey(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	first, _, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
	require.NoError(t, err)
	second, replayed, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
	require.NoError(t, err)

	assert.True(t, replayed)
	assert.Equal(t, first.ReceiptID, second.ReceiptID)

	list, err := b.ListPurchases(ctx, wire.QueryBody{ProjectName: "demo", UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1, "one charge per key")
}

func TestBackend_ProcessPurchase_ConcurrentSameKey(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
			assert.NoError(t, err)
			ids[i] = r.ReceiptID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, _ := b.ListPurchases(ctx, wire.QueryBody{ProjectName: "demo", UserID: "user-1"})
	assert.Len(t, list, 1)
}

func TestBackend_ProcessPurchase_KeyReuseConflict(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	_, _, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
	require.NoError(t, err)

	other := gemsBody()
	other.ProductID = "remove_ads"
	other.Amount = "2.99"
	_, _, err = b.ProcessPurchase(ctx, other, testKey)
	assert.ErrorIs(t, err, apperror.ErrIdempotencyConflict())
}

func TestBackend_ProcessPurchase_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*wire.PurchaseBody)
		want   *apperror.AppError
	}{
		{"unknown item", func(b *wire.PurchaseBody) { b.ProductID = "nope" }, apperror.ErrItemNotFound("")},
		{"wrong amount", func(b *wire.PurchaseBody) { b.Amount = "1.00" }, apperror.ErrAmountMismatch()},
		{"wrong currency", func(b *wire.PurchaseBody) { b.Currency = "EUR" }, apperror.ErrAmountMismatch()},
		{"bad amount", func(b *wire.PurchaseBody) { b.Amount = "lots" }, apperror.Validation("")},
		{"declined card", func(b *wire.PurchaseBody) {
			b.PaymentMethod = "card"
			b.CardData = &wire.CardData{CardNumber: CardDeclined}
		}, apperror.ErrCardDeclined()},
		{"insufficient funds", func(b *wire.PurchaseBody) {
			b.PaymentMethod = "card"
			b.CardData = &wire.CardData{CardNumber: CardInsufficientFunds}
		}, apperror.ErrInsufficientFunds()},
		{"card missing", func(b *wire.PurchaseBody) { b.PaymentMethod = "card" }, apperror.Validation("")},
		{"no user", func(b *wire.PurchaseBody) { b.UserID = "" }, apperror.Validation("")},
		{"key mismatch", func(b *wire.PurchaseBody) { b.IdempotencyKey = "idk_other" }, apperror.Validation("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend()
			body := gemsBody()
			tt.mutate(&body)
			_, _, err := b.ProcessPurchase(context.Background(), body, testKey)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_ProcessPurchase_MissingKey(t *testing.T) {
	b := newTestBackend()
	_, _, err := b.ProcessPurchase(context.Background(), gemsBody(), "")
	assert.ErrorIs(t, err, apperror.Validation(""))

	body := gemsBody()
	body.IdempotencyKey = testKey
	_, _, err = b.ProcessPurchase(context.Background(), body, "")
	assert.NoError(t, err, "body key is accepted without the header")
}

func TestBackend_OneTimeItemOwnedOnce(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()
	body := gemsBody()
	body.ProductID = "remove_ads"
	body.Amount = "2.99"

	_, _, err := b.ProcessPurchase(ctx, body, "idk_1")
	require.NoError(t, err)
	_, _, err = b.ProcessPurchase(ctx, body, "idk_2")
	assert.ErrorIs(t, err, apperror.ErrAlreadyOwned(""))

	owned, err := b.CheckPurchased(ctx, wire.QueryBody{ProjectName: "demo", UserID: "user-1", ProductID: "remove_ads"})
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestBackend_FailTimes(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()
	body := gemsBody()
	body.Metadata = map[string]string{MetaFailTimes: "2"}

	for i := 0; i < 2; i++ {
		_, _, err := b.ProcessPurchase(ctx, body, testKey)
		assert.ErrorIs(t, err, apperror.ErrUnavailable())
	}
	r, replayed, err := b.ProcessPurchase(ctx, body, testKey)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEmpty(t, r.ReceiptID)
}

func TestBackend_DropResponseThenReplay(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()
	body := gemsBody()
	body.Metadata = map[string]string{MetaDropResponse: "true"}

	_, _, err := b.ProcessPurchase(ctx, body, testKey)
	assert.ErrorIs(t, err, apperror.ErrUnavailable())

	r, replayed, err := b.ProcessPurchase(ctx, body, testKey)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.NotEmpty(t, r.ReceiptID)

	list, _ := b.ListPurchases(ctx, wire.QueryBody{ProjectName: "demo", UserID: "user-1"})
	assert.Len(t, list, 1)
}

func TestBackend_Subscriptions(t *testing.T) {
	b := newTestBackend()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()
	q := wire.QueryBody{ProjectName: "demo", UserID: "user-1", ProductID: "vip_monthly"}

	subscribed, err := b.CheckSubscribed(ctx, q)
	require.NoError(t, err)
	assert.False(t, subscribed)

	body := gemsBody()
	body.ProductID = "vip_monthly"
	body.Amount = "9.99"
	_, _, err = b.ProcessPurchase(ctx, body, testKey)
	require.NoError(t, err)

	subscribed, _ = b.CheckSubscribed(ctx, q)
	assert.True(t, subscribed)
	subs, _ := b.ListSubscriptions(ctx, q)
	assert.Len(t, subs, 1)
	purchases, _ := b.ListPurchases(ctx, q)
	assert.Empty(t, purchases)

	now = now.Add(SubscriptionPeriod + time.Hour)
	subscribed, _ = b.CheckSubscribed(ctx, q)
	assert.False(t, subscribed)
}

func TestBackend_ValidateItem(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	item, err := b.ValidateItem(ctx, wire.QueryBody{ProjectName: "demo", UserID: "u", ProductID: "coins_jpy"})
	require.NoError(t, err)
	assert.Equal(t, "120", item.Price)
	assert.Equal(t, "JPY", item.Currency)
	assert.Equal(t, "repurchase", item.Type)

	_, err = b.ValidateItem(ctx, wire.QueryBody{ProjectName: "demo", UserID: "u", ProductID: "nope"})
	assert.ErrorIs(t, err, apperror.ErrItemNotFound(""))
}

func TestBackend_ProcessPurchase_CacheErrors(t *testing.T) {
	ctx := context.Background()
	owner := wire.QueryBody{ProjectName: "demo", UserID: "user-1"}

	t.Run("set fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyCache(ctrl)
		b := NewBackend(Config{IdempotencyTTL: time.Hour}, cache, nil, zerolog.Nop())

		cache.EXPECT().Get(gomock.Any(), testKey).Return(nil, nil)
		cache.EXPECT().Set(gomock.Any(), testKey, gomock.Any(), time.Hour).Return(errors.New("redis down"))

		r, replayed, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
		assert.Nil(t, r)
		assert.False(t, replayed)
		assert.ErrorIs(t, err, apperror.InternalError(nil))

		list, err := b.ListPurchases(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, list, "nothing is recorded when the receipt cannot be cached")
	})

	t.Run("get fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockIdempotencyCache(ctrl)
		b := NewBackend(Config{IdempotencyTTL: time.Hour}, cache, nil, zerolog.Nop())

		cache.EXPECT().Get(gomock.Any(), testKey).Return(nil, errors.New("redis down"))

		_, _, err := b.ProcessPurchase(ctx, gemsBody(), testKey)
		assert.ErrorIs(t, err, apperror.InternalError(nil))
	})
}
