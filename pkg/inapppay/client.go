// Package inapppay is the purchase client: it submits in-app purchases to
// the payment backend with one idempotency key per transaction, retries
// transient failures, and delivers exactly one terminal outcome per purchase.
package inapppay

import (
	"context"
	"errors"

	"inapppay/config"
	"inapppay/internal/adapter/backend"
	"inapppay/internal/metrics"
	"inapppay/internal/service"
	"inapppay/internal/worker"
	"inapppay/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client owns every in-flight purchase of one user of one project.
type Client struct {
	txs     *service.TransactionService
	queries *service.QueryService
	stores  *storeSet
	log     zerolog.Logger
}

// New wires a Client from cfg. Stores named by cfg.Store are opened here and
// closed by Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("inapppay: nil config")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if o.logger != nil {
		log = *o.logger
	}

	stores := &storeSet{cfg: cfg, log: logger.Component(log, "storage")}
	txStore := o.store
	if txStore == nil {
		s, err := stores.transactionStore(ctx)
		if err != nil {
			stores.close()
			return nil, err
		}
		txStore = s
	}
	keyStore := o.keys
	if keyStore == nil {
		s, err := stores.keyStore(ctx)
		if err != nil {
			stores.close()
			return nil, err
		}
		keyStore = s
	}

	transport := o.transport
	if transport == nil {
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = backend.NewHTTPClient(cfg.Backend.Timeout, logger.Component(log, "http"), cfg.Backend.LogBodies)
		}
		codec := backend.NewCodec(cfg.Backend.ProjectName, cfg.Backend.UserID,
			service.NewHMACReceiptSigner(), cfg.Backend.ReceiptSecret)
		transport = backend.NewTransport(cfg.Backend.BaseURL, httpClient, codec,
			cfg.Backend.Timeout, logger.Component(log, "transport"))
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.New(o.registerer)
	}

	txLog := logger.Component(log, "transactions")
	txs := service.NewTransactionService(service.TransactionServiceDeps{
		Transport: transport,
		Keys:      service.NewKeyManager(keyStore, txLog),
		Policy: service.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			MaxElapsed:  cfg.Retry.MaxElapsed,
			Jitter:      cfg.Retry.Jitter,
		},
		Store:          txStore,
		Dispatcher:     service.NewDispatcher(txLog),
		Validator:      service.NewRequestValidator(cfg.Backend.ProjectName, cfg.Backend.UserID),
		Pool:           worker.NewPool(cfg.Client.MaxInFlight),
		Metrics:        m,
		AttemptTimeout: cfg.Backend.Timeout,
		Logger:         txLog,
	})

	return &Client{
		txs:     txs,
		queries: service.NewQueryService(transport, cfg.Backend.ProjectName, cfg.Backend.UserID, logger.Component(log, "queries")),
		stores:  stores,
		log:     log,
	}, nil
}

// Submit validates req and starts purchasing it. Invalid requests fail here,
// before any network call. Cancelling ctx cancels the purchase; ctx's
// deadline passing expires it.
func (c *Client) Submit(ctx context.Context, req PurchaseRequest, opts ...SubmitOption) (*Handle, error) {
	id, err := c.txs.Submit(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	return c.Handle(id), nil
}

// Handle returns a handle for a transaction id obtained earlier.
func (c *Client) Handle(id uuid.UUID) *Handle {
	return &Handle{id: id, txs: c.txs}
}

// Recover resumes every purchase left open by a previous process.
func (c *Client) Recover(ctx context.Context) ([]*Handle, error) {
	ids, err := c.txs.Recover(ctx)
	handles := make([]*Handle, 0, len(ids))
	for _, id := range ids {
		handles = append(handles, c.Handle(id))
	}
	return handles, err
}

func (c *Client) ValidateItem(ctx context.Context, itemID string) (*Item, error) {
	return c.queries.ValidateItem(ctx, itemID)
}

func (c *Client) IsPurchased(ctx context.Context, itemID string) (EntitlementStatus, error) {
	return c.queries.IsPurchased(ctx, itemID)
}

func (c *Client) IsSubscribed(ctx context.Context, itemID string) (EntitlementStatus, error) {
	return c.queries.IsSubscribed(ctx, itemID)
}

func (c *Client) ListPurchases(ctx context.Context) ([]PurchaseRecord, error) {
	return c.queries.ListPurchases(ctx)
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]PurchaseRecord, error) {
	return c.queries.ListSubscriptions(ctx)
}

// Close stops new submissions and waits for running attempt loops. Open
// purchases stay in the transaction store for Recover. Stores are left open
// if ctx ends first.
func (c *Client) Close(ctx context.Context) error {
	if err := c.txs.Close(ctx); err != nil {
		return err
	}
	c.stores.close()
	return nil
}

// Handle refers to one submitted purchase.
type Handle struct {
	id  uuid.UUID
	txs *service.TransactionService
}

func (h *Handle) ID() uuid.UUID { return h.id }

// Await blocks until the purchase is terminal or ctx is done.
func (h *Handle) Await(ctx context.Context) (Outcome, error) {
	return h.txs.Await(ctx, h.id)
}

// OnTerminal calls fn once with the terminal outcome, on its own goroutine.
func (h *Handle) OnTerminal(fn func(Outcome)) error {
	return h.txs.OnTerminal(h.id, fn)
}

func (h *Handle) Cancel(ctx context.Context) error {
	return h.txs.Cancel(ctx, h.id)
}

func (h *Handle) Snapshot() (Transaction, error) {
	return h.txs.Snapshot(h.id)
}

// Acknowledge releases the purchase after its outcome has been handled.
func (h *Handle) Acknowledge(ctx context.Context) error {
	return h.txs.Acknowledge(ctx, h.id)
}
