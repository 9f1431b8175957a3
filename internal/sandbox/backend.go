// Package sandbox is a self-contained purchase backend for local development
// and end-to-end tests of the client.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/wire"
	"inapppay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SubscriptionPeriod is how long one subscription purchase stays active.
const SubscriptionPeriod = 30 * 24 * time.Hour

// Config configures a Backend.
type Config struct {
	Catalog        []domain.Item // nil uses DefaultCatalog
	ReceiptSecret  string        // empty leaves receipts unsigned
	IdempotencyTTL time.Duration
}

// Backend implements ports.SandboxBackend. Charges are serialized so two
// concurrent requests with one key produce a single charge.
type Backend struct {
	catalog map[string]domain.Item
	cache   ports.IdempotencyCache
	signer  ports.ReceiptSigner
	secret  string
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger

	chargeMu sync.Mutex
	mu       sync.Mutex
	ledger   map[string][]wire.ReceiptData // by project/user
	failures map[string]int                // injected failures served per key
}

func NewBackend(cfg Config, cache ports.IdempotencyCache, signer ports.ReceiptSigner, log zerolog.Logger) *Backend {
	items := cfg.Catalog
	if items == nil {
		items = DefaultCatalog()
	}
	catalog := make(map[string]domain.Item, len(items))
	for _, it := range items {
		catalog[it.ID] = it
	}
	return &Backend{
		catalog:  catalog,
		cache:    cache,
		signer:   signer,
		secret:   cfg.ReceiptSecret,
		ttl:      cfg.IdempotencyTTL,
		now:      time.Now,
		log:      log,
		ledger:   make(map[string][]wire.ReceiptData),
		failures: make(map[string]int),
	}
}

func (b *Backend) ValidateItem(_ context.Context, q wire.QueryBody) (*wire.ItemData, error) {
	if err := checkCaller(q.ProjectName, q.UserID); err != nil {
		return nil, err
	}
	item, ok := b.catalog[q.ProductID]
	if !ok {
		return nil, apperror.ErrItemNotFound(q.ProductID)
	}
	return &wire.ItemData{
		ProductID:   item.ID,
		Name:        item.Name,
		Description: item.Description,
		Type:        string(item.Type),
		Price:       item.Price.String(),
		Currency:    item.Currency,
	}, nil
}

// ProcessPurchase charges at most once per idempotency key. key comes from
// the Idempotency-Key header; the body copy must agree when present.
func (b *Backend) ProcessPurchase(ctx context.Context, body wire.PurchaseBody, key string) (*wire.ReceiptData, bool, error) {
	if key == "" {
		key = body.IdempotencyKey
	}
	if key == "" {
		return nil, false, apperror.Validation("idempotency key is required")
	}
	if body.IdempotencyKey != "" && body.IdempotencyKey != key {
		return nil, false, apperror.Validation("idempotency key header and body differ")
	}
	if err := checkCaller(body.ProjectName, body.UserID); err != nil {
		return nil, false, err
	}

	b.chargeMu.Lock()
	defer b.chargeMu.Unlock()

	if prior, err := b.lookup(ctx, key); err != nil {
		return nil, false, apperror.InternalError(err)
	} else if prior != nil {
		if prior.ProductID != body.ProductID || !sameAmount(prior.Amount, body.Amount) {
			return nil, false, apperror.ErrIdempotencyConflict()
		}
		b.log.Info().Str("key", key).Str("receipt_id", prior.ReceiptID).Msg("replaying purchase")
		return prior, true, nil
	}

	if b.injectFailure(key, body.Metadata) {
		return nil, false, apperror.ErrUnavailable()
	}

	item, ok := b.catalog[body.ProductID]
	if !ok {
		return nil, false, apperror.ErrItemNotFound(body.ProductID)
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return nil, false, apperror.Validation(fmt.Sprintf("invalid amount %q", body.Amount))
	}
	if !amount.Equal(item.Price) || !strings.EqualFold(body.Currency, item.Currency) {
		return nil, false, apperror.ErrAmountMismatch()
	}
	if err := chargeMethod(body); err != nil {
		return nil, false, err
	}
	if item.Type == domain.ItemTypeOneTime && b.owns(body.ProjectName, body.UserID, item.ID) {
		return nil, false, apperror.ErrAlreadyOwned(item.ID)
	}

	receipt := wire.ReceiptData{
		ReceiptID:      "rcpt_" + uuid.NewString(),
		ProductID:      item.ID,
		Amount:         item.Price.String(),
		Currency:       item.Currency,
		IdempotencyKey: key,
		PurchasedAt:    b.now().UTC().Format(time.RFC3339),
	}
	if b.signer != nil && b.secret != "" {
		receipt.Signature = b.signer.Sign(b.secret, receipt.Canonical())
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		return nil, false, apperror.InternalError(err)
	}
	if err := b.cache.Set(ctx, key, data, b.ttl); err != nil {
		return nil, false, apperror.InternalError(err)
	}

	b.mu.Lock()
	owner := ownerKey(body.ProjectName, body.UserID)
	b.ledger[owner] = append(b.ledger[owner], receipt)
	b.mu.Unlock()

	b.log.Info().
		Str("key", key).
		Str("receipt_id", receipt.ReceiptID).
		Str("product_id", item.ID).
		Str("amount", receipt.Amount).
		Msg("purchase charged")

	if body.Metadata[MetaDropResponse] == "true" {
		return nil, false, apperror.ErrUnavailable()
	}
	return &receipt, false, nil
}

func (b *Backend) CheckPurchased(_ context.Context, q wire.QueryBody) (bool, error) {
	if err := checkCaller(q.ProjectName, q.UserID); err != nil {
		return false, err
	}
	if _, ok := b.catalog[q.ProductID]; !ok {
		return false, apperror.ErrItemNotFound(q.ProductID)
	}
	return b.owns(q.ProjectName, q.UserID, q.ProductID), nil
}

func (b *Backend) CheckSubscribed(_ context.Context, q wire.QueryBody) (bool, error) {
	if err := checkCaller(q.ProjectName, q.UserID); err != nil {
		return false, err
	}
	item, ok := b.catalog[q.ProductID]
	if !ok {
		return false, apperror.ErrItemNotFound(q.ProductID)
	}
	if item.Type != domain.ItemTypeSubscription {
		return false, nil
	}
	for _, r := range b.records(q.ProjectName, q.UserID) {
		if r.ProductID == item.ID && b.active(r) {
			return true, nil
		}
	}
	return false, nil
}

func (b *Backend) ListPurchases(_ context.Context, q wire.QueryBody) ([]wire.ReceiptData, error) {
	return b.list(q, false)
}

func (b *Backend) ListSubscriptions(_ context.Context, q wire.QueryBody) ([]wire.ReceiptData, error) {
	return b.list(q, true)
}

func (b *Backend) list(q wire.QueryBody, subscriptions bool) ([]wire.ReceiptData, error) {
	if err := checkCaller(q.ProjectName, q.UserID); err != nil {
		return nil, err
	}
	out := []wire.ReceiptData{}
	for _, r := range b.records(q.ProjectName, q.UserID) {
		isSub := b.catalog[r.ProductID].Type == domain.ItemTypeSubscription
		if isSub != subscriptions {
			continue
		}
		if subscriptions && !b.active(r) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *Backend) lookup(ctx context.Context, key string) (*wire.ReceiptData, error) {
	raw, err := b.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, err
	}
	var r wire.ReceiptData
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode cached receipt: %w", err)
	}
	return &r, nil
}

func (b *Backend) injectFailure(key string, meta map[string]string) bool {
	n, err := strconv.Atoi(meta[MetaFailTimes])
	if err != nil || n <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures[key] >= n {
		return false
	}
	b.failures[key]++
	b.log.Debug().Str("key", key).Int("served", b.failures[key]).Msg("injected failure")
	return true
}

func (b *Backend) owns(project, user, productID string) bool {
	for _, r := range b.records(project, user) {
		if r.ProductID == productID {
			return true
		}
	}
	return false
}

func (b *Backend) records(project, user string) []wire.ReceiptData {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]wire.ReceiptData(nil), b.ledger[ownerKey(project, user)]...)
}

func (b *Backend) active(r wire.ReceiptData) bool {
	ts, err := time.Parse(time.RFC3339, r.PurchasedAt)
	if err != nil {
		return false
	}
	return b.now().Before(ts.Add(SubscriptionPeriod))
}

func chargeMethod(body wire.PurchaseBody) error {
	switch body.PaymentMethod {
	case string(domain.PaymentMethodCard):
		if body.CardData == nil {
			return apperror.Validation("cardData is required for card payments")
		}
		switch body.CardData.CardNumber {
		case CardDeclined:
			return apperror.ErrCardDeclined()
		case CardInsufficientFunds:
			return apperror.ErrInsufficientFunds()
		}
		if !domain.LuhnValid(body.CardData.CardNumber) {
			return apperror.ErrCardDeclined()
		}
	case string(domain.PaymentMethodPayPal):
	default:
		return apperror.Validation(fmt.Sprintf("unsupported payment method %q", body.PaymentMethod))
	}
	return nil
}

func checkCaller(project, user string) error {
	if project == "" {
		return apperror.Validation("projectName is required")
	}
	if user == "" {
		return apperror.Validation("userId is required")
	}
	return nil
}

func ownerKey(project, user string) string {
	return project + "/" + user
}

func sameAmount(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}
