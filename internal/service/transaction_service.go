package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/internal/core/ports"
	"inapppay/internal/metrics"
	"inapppay/internal/worker"
	"inapppay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubmitOption customizes a single Submit call.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	deadline time.Time
	timeout  time.Duration
	progress func(attempt int)
}

// WithDeadline expires the transaction if it is still open at t.
func WithDeadline(t time.Time) SubmitOption {
	return func(o *submitOptions) { o.deadline = t }
}

// WithTimeout expires the transaction if it is still open after d.
func WithTimeout(d time.Duration) SubmitOption {
	return func(o *submitOptions) { o.timeout = d }
}

// WithProgress calls fn with the attempt count after every recorded attempt.
func WithProgress(fn func(attempt int)) SubmitOption {
	return func(o *submitOptions) { o.progress = fn }
}

// expiresAt returns the earlier of the deadline and now+timeout, or zero.
func (o submitOptions) expiresAt(now time.Time) time.Time {
	deadline := o.deadline
	if o.timeout > 0 {
		if d := now.Add(o.timeout); deadline.IsZero() || d.Before(deadline) {
			deadline = d
		}
	}
	return deadline
}

// tracked is the in-memory state of one transaction. mu serializes every
// transition of tx.
type tracked struct {
	mu           sync.Mutex
	tx           domain.Transaction
	progress     func(attempt int)
	wake         chan struct{} // closed when tx turns terminal
	stops        []func() bool
	acknowledged bool // record deleted from the store; never save again
}

// TransactionServiceDeps holds the collaborators of a TransactionService.
type TransactionServiceDeps struct {
	Transport      ports.Transport
	Keys           *KeyManager
	Policy         RetryPolicy
	Store          ports.TransactionStore // nil disables persistence
	Dispatcher     *Dispatcher
	Validator      *RequestValidator
	Pool           *worker.Pool
	Metrics        *metrics.Metrics
	AttemptTimeout time.Duration
	Logger         zerolog.Logger
}

// TransactionService drives purchases through their lifecycle: one
// idempotency key per transaction, bounded retries of transient failures,
// and exactly one terminal outcome.
type TransactionService struct {
	transport      ports.Transport
	keys           *KeyManager
	policy         RetryPolicy
	store          ports.TransactionStore
	dispatcher     *Dispatcher
	validator      *RequestValidator
	pool           *worker.Pool
	metrics        *metrics.Metrics
	attemptTimeout time.Duration
	now            func() time.Time
	log            zerolog.Logger

	mu      sync.RWMutex
	txs     map[uuid.UUID]*tracked
	closed  bool
	closing chan struct{}
	loops   sync.WaitGroup
}

func NewTransactionService(deps TransactionServiceDeps) *TransactionService {
	if deps.Dispatcher == nil {
		deps.Dispatcher = NewDispatcher(deps.Logger)
	}
	if deps.Keys == nil {
		deps.Keys = NewKeyManager(nil, deps.Logger)
	}
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(4)
	}
	return &TransactionService{
		transport:      deps.Transport,
		keys:           deps.Keys,
		policy:         deps.Policy,
		store:          deps.Store,
		dispatcher:     deps.Dispatcher,
		validator:      deps.Validator,
		pool:           deps.Pool,
		metrics:        deps.Metrics,
		attemptTimeout: deps.AttemptTimeout,
		now:            time.Now,
		log:            deps.Logger,
		txs:            make(map[uuid.UUID]*tracked),
		closing:        make(chan struct{}),
	}
}

// Submit validates req, creates its transaction and starts the attempt loop.
// Invalid requests fail synchronously without a network call. Cancelling
// ctx later cancels the transaction; its deadline passing expires it.
func (s *TransactionService) Submit(ctx context.Context, req domain.PurchaseRequest, opts ...SubmitOption) (uuid.UUID, error) {
	if s.isClosed() {
		return uuid.Nil, apperror.ErrClientClosed()
	}
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	if s.validator != nil {
		normalized, err := s.validator.Validate(req)
		if err != nil {
			return uuid.Nil, err
		}
		req = normalized
	}

	now := s.now().UTC()
	tx := domain.Transaction{
		ID:        uuid.New(),
		Request:   req.Clone(),
		State:     domain.StateCreated,
		Attempts:  []domain.Attempt{},
		CreatedAt: now,
	}
	deadline := o.expiresAt(now)
	if !deadline.IsZero() {
		d := deadline.UTC()
		tx.Deadline = &d
	}

	key, err := s.keys.KeyFor(ctx, tx.ID)
	if err != nil {
		return uuid.Nil, apperror.ErrStorage(err)
	}
	tx.IdempotencyKey = key
	tx.State = domain.StatePending

	// Registered before the first save: a Submit rejected by Close leaves no
	// record behind for Recover.
	t := &tracked{tx: tx, progress: o.progress, wake: make(chan struct{})}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = s.keys.Forget(context.WithoutCancel(ctx), tx.ID)
		return uuid.Nil, apperror.ErrClientClosed()
	}
	s.txs[tx.ID] = t
	s.loops.Add(1)
	s.mu.Unlock()

	if err := s.persist(ctx, &tx); err != nil {
		s.mu.Lock()
		delete(s.txs, tx.ID)
		s.mu.Unlock()
		s.loops.Done()
		_ = s.keys.Forget(context.WithoutCancel(ctx), tx.ID)
		return uuid.Nil, apperror.ErrStorage(err)
	}

	s.dispatcher.Register(tx.ID)
	s.metrics.TransactionStarted()
	s.watch(ctx, t, deadline)

	s.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("item_id", req.ItemID).
		Str("amount", req.Amount.String()).
		Str("currency", req.Currency).
		Msg("purchase submitted")

	go s.run(tx.ID)
	return tx.ID, nil
}

// watch ties cancellation and expiry sources to the transaction. A zero
// deadline arms no timer.
func (s *TransactionService) watch(ctx context.Context, t *tracked, deadline time.Time) {
	id := t.tx.ID

	var stops []func() bool
	if !deadline.IsZero() {
		timer := time.AfterFunc(time.Until(deadline), func() {
			_ = s.Expire(context.Background(), id)
		})
		stops = append(stops, timer.Stop)
	}
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				_ = s.Expire(context.Background(), id)
				return
			}
			_ = s.Cancel(context.Background(), id)
		})
		stops = append(stops, stop)
	}

	t.mu.Lock()
	if t.tx.IsTerminal() {
		t.mu.Unlock()
		for _, stop := range stops {
			stop()
		}
		return
	}
	t.stops = stops
	t.mu.Unlock()
}

// run is the attempt loop of one transaction. Sends use a context detached
// from the caller so cancellation never aborts a request already on the wire.
func (s *TransactionService) run(id uuid.UUID) {
	defer s.loops.Done()

	for {
		t := s.lookup(id)
		if t == nil {
			return
		}

		t.mu.Lock()
		if t.tx.IsTerminal() {
			t.mu.Unlock()
			return
		}
		if t.tx.State == domain.StateRetrying {
			t.tx.State = domain.StatePending
		}
		start := s.now().UTC()
		if t.tx.FirstAttemptAt == nil {
			first := start
			t.tx.FirstAttemptAt = &first
		}
		t.tx.LastAttemptAt = &start
		req := t.tx.Request.Clone()
		key := t.tx.IdempotencyKey
		if err := s.persist(context.Background(), &t.tx); err != nil {
			s.log.Warn().Err(err).Str("tx_id", id.String()).Msg("failed to persist attempt start")
		}
		t.mu.Unlock()

		outcome, ok := s.send(req, key)
		if !ok {
			s.log.Warn().Str("tx_id", id.String()).Msg("client closing, attempt not sent")
			return
		}

		decision, err := s.recordAttempt(context.Background(), id, start, outcome)
		if err != nil || !decision.Retry {
			return
		}

		s.log.Info().
			Str("tx_id", id.String()).
			Str("code", outcome.Code).
			Dur("delay", decision.Delay).
			Msg("transient failure, retrying")

		timer := time.NewTimer(decision.Delay)
		select {
		case <-timer.C:
		case <-t.wake:
			timer.Stop()
			return
		case <-s.closing:
			timer.Stop()
			return
		}
	}
}

// send runs one transport call on the worker pool. ok is false when the pool
// no longer accepts work.
func (s *TransactionService) send(req domain.PurchaseRequest, key domain.IdempotencyKey) (domain.Outcome, bool) {
	result := make(chan domain.Outcome, 1)
	err := s.pool.Submit(func() {
		result <- s.transport.Send(context.Background(), req, key, s.attemptTimeout)
	})
	if err != nil {
		return domain.Outcome{}, false
	}
	s.metrics.SetQueueDepth(s.pool.QueueDepth())
	return <-result, true
}

// OnAttemptResult records an attempt that finished now and applies the
// transition rules. After a terminal state only the audit record is appended.
func (s *TransactionService) OnAttemptResult(ctx context.Context, id uuid.UUID, outcome domain.Outcome) (Decision, error) {
	return s.recordAttempt(ctx, id, time.Time{}, outcome)
}

func (s *TransactionService) recordAttempt(ctx context.Context, id uuid.UUID, startedAt time.Time, outcome domain.Outcome) (Decision, error) {
	t := s.lookup(id)
	if t == nil {
		return GiveUp, apperror.ErrTransactionNotFound()
	}
	return s.applyAttempt(ctx, t, startedAt, outcome), nil
}

// applyAttempt appends the attempt to t and moves it to its next state.
func (s *TransactionService) applyAttempt(ctx context.Context, t *tracked, startedAt time.Time, outcome domain.Outcome) Decision {
	id := t.tx.ID
	t.mu.Lock()
	end := s.now().UTC()
	if startedAt.IsZero() {
		startedAt = end
		if t.tx.LastAttemptAt != nil {
			startedAt = *t.tx.LastAttemptAt
		}
	}
	late := t.tx.IsTerminal()
	t.tx.Attempts = append(t.tx.Attempts, domain.Attempt{
		TransactionID: id,
		Sequence:      len(t.tx.Attempts) + 1,
		StartedAt:     startedAt,
		EndedAt:       end,
		Result:        outcome.Clone(),
		Late:          late,
	})
	t.tx.AttemptCount = len(t.tx.Attempts)
	attempts := t.tx.AttemptCount
	s.metrics.ObserveAttempt(string(outcome.Kind), end.Sub(startedAt))

	if late {
		if t.acknowledged {
			t.mu.Unlock()
			s.log.Debug().Str("tx_id", id.String()).Msg("late attempt after acknowledge dropped")
			return GiveUp
		}
		if err := s.persist(ctx, &t.tx); err != nil {
			s.log.Warn().Err(err).Str("tx_id", id.String()).Msg("failed to persist late attempt")
		}
		state := t.tx.State
		t.mu.Unlock()
		s.log.Info().
			Str("tx_id", id.String()).
			Str("state", string(state)).
			Str("outcome", string(outcome.Kind)).
			Msg("late attempt result recorded for audit only")
		return GiveUp
	}

	var (
		decision Decision
		next     domain.State
	)
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		next = domain.StateSucceeded
	case domain.OutcomeDeclined:
		next = domain.StateDeclined
	case domain.OutcomeFatalFailure:
		next = domain.StateFailed
	case domain.OutcomeCancelled:
		next = domain.StateCancelled
	case domain.OutcomeExpired:
		next = domain.StateExpired
	case domain.OutcomeTransientFailure:
		first := startedAt
		if t.tx.FirstAttemptAt != nil {
			first = *t.tx.FirstAttemptAt
		}
		decision = s.policy.ShouldRetry(attempts, end.Sub(first), outcome)
		next = domain.StateFailed
		if decision.Retry {
			next = domain.StateRetrying
		}
	default:
		next = domain.StateFailed
		outcome = domain.FatalFailure(domain.CodeMalformedResponse, fmt.Sprintf("unknown outcome kind %q", outcome.Kind))
	}

	terminal := next.IsTerminal()
	if terminal {
		s.finishLocked(t, next, outcome)
	} else {
		t.tx.State = next
	}
	if err := s.persist(ctx, &t.tx); err != nil {
		s.log.Warn().Err(err).Str("tx_id", id.String()).Msg("failed to persist attempt result")
	}
	progress := t.progress
	t.mu.Unlock()

	s.log.Info().
		Str("tx_id", id.String()).
		Int("attempt", attempts).
		Str("outcome", string(outcome.Kind)).
		Str("state", string(next)).
		Msg("attempt recorded")

	if progress != nil {
		progress(attempts)
	}
	if terminal {
		s.deliver(id, next, outcome)
	}
	return decision
}

// Cancel moves an open transaction to CANCELLED. A request already on the
// wire is not aborted; its result is recorded for audit only.
func (s *TransactionService) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.abandon(ctx, id, domain.StateCancelled, domain.Cancelled())
}

// Expire moves an open transaction to EXPIRED.
func (s *TransactionService) Expire(ctx context.Context, id uuid.UUID) error {
	return s.abandon(ctx, id, domain.StateExpired, domain.Expired())
}

func (s *TransactionService) abandon(ctx context.Context, id uuid.UUID, state domain.State, outcome domain.Outcome) error {
	t := s.lookup(id)
	if t == nil {
		return apperror.ErrTransactionNotFound()
	}

	t.mu.Lock()
	if !t.tx.State.IsCancellable() {
		t.mu.Unlock()
		return apperror.ErrNotCancellable()
	}
	s.finishLocked(t, state, outcome)
	if err := s.persist(ctx, &t.tx); err != nil {
		s.log.Warn().Err(err).Str("tx_id", id.String()).Msg("failed to persist terminal state")
	}
	t.mu.Unlock()

	s.log.Info().Str("tx_id", id.String()).Str("state", string(state)).Msg("purchase abandoned")
	s.deliver(id, state, outcome)
	return nil
}

// finishLocked sets the single terminal state. Caller holds t.mu.
func (s *TransactionService) finishLocked(t *tracked, state domain.State, outcome domain.Outcome) {
	now := s.now().UTC()
	result := outcome.Clone()
	t.tx.State = state
	t.tx.TerminalResult = &result
	t.tx.CompletedAt = &now
	close(t.wake)
	for _, stop := range t.stops {
		stop()
	}
	t.stops = nil
}

func (s *TransactionService) deliver(id uuid.UUID, state domain.State, outcome domain.Outcome) {
	s.metrics.ObserveTerminal(string(state))
	s.dispatcher.Publish(id, outcome)
}

// Await blocks until the transaction is terminal or ctx is done.
func (s *TransactionService) Await(ctx context.Context, id uuid.UUID) (domain.Outcome, error) {
	return s.dispatcher.Await(ctx, id)
}

// OnTerminal registers fn to run once with the terminal outcome.
func (s *TransactionService) OnTerminal(id uuid.UUID, fn func(domain.Outcome)) error {
	return s.dispatcher.OnTerminal(id, fn)
}

// Snapshot returns a deep copy of the transaction.
func (s *TransactionService) Snapshot(id uuid.UUID) (domain.Transaction, error) {
	t := s.lookup(id)
	if t == nil {
		return domain.Transaction{}, apperror.ErrTransactionNotFound()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx.Clone(), nil
}

// Acknowledge releases a terminal transaction from memory and persistence.
func (s *TransactionService) Acknowledge(ctx context.Context, id uuid.UUID) error {
	t := s.lookup(id)
	if t == nil {
		return apperror.ErrTransactionNotFound()
	}
	t.mu.Lock()
	if !t.tx.IsTerminal() {
		t.mu.Unlock()
		return apperror.ErrNotTerminal()
	}
	t.acknowledged = true
	t.mu.Unlock()

	s.mu.Lock()
	delete(s.txs, id)
	s.mu.Unlock()
	s.dispatcher.Forget(id)

	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return apperror.ErrStorage(fmt.Errorf("delete transaction: %w", err))
		}
	}
	if err := s.keys.Forget(ctx, id); err != nil {
		return apperror.ErrStorage(err)
	}
	s.log.Debug().Str("tx_id", id.String()).Msg("transaction acknowledged")
	return nil
}

// Recover reloads open transactions from the store and resumes their attempt
// loops with their persisted keys. A persisted deadline is re-armed; one that
// already passed expires the transaction right away.
func (s *TransactionService) Recover(ctx context.Context) ([]uuid.UUID, error) {
	if s.isClosed() {
		return nil, apperror.ErrClientClosed()
	}
	if s.store == nil {
		return nil, nil
	}

	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list open transactions: %w", err))
	}

	var resumed []uuid.UUID
	for i := range open {
		tx := open[i]
		if tx.IsTerminal() || s.lookup(tx.ID) != nil {
			continue
		}

		key, err := s.keys.Adopt(ctx, tx.ID, tx.IdempotencyKey)
		if err != nil {
			return resumed, apperror.ErrStorage(err)
		}
		tx.IdempotencyKey = key
		if tx.State == domain.StateCreated {
			tx.State = domain.StatePending
		}
		if tx.Attempts == nil {
			tx.Attempts = []domain.Attempt{}
		}
		tx.AttemptCount = len(tx.Attempts)

		t := &tracked{tx: tx, wake: make(chan struct{})}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return resumed, apperror.ErrClientClosed()
		}
		s.txs[tx.ID] = t
		s.loops.Add(1)
		s.mu.Unlock()

		s.dispatcher.Register(tx.ID)
		s.metrics.TransactionStarted()
		if tx.Deadline != nil {
			s.watch(context.Background(), t, *tx.Deadline)
		}
		s.log.Info().
			Str("tx_id", tx.ID.String()).
			Int("attempt", tx.AttemptCount).
			Str("state", string(tx.State)).
			Msg("resuming recovered purchase")

		go s.run(tx.ID)
		resumed = append(resumed, tx.ID)
	}
	return resumed, nil
}

// Close stops new submissions, interrupts backoff waits and waits for
// in-flight sends. Open transactions stay persisted for Recover.
func (s *TransactionService) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		s.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TransactionService) lookup(id uuid.UUID) *tracked {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txs[id]
}

func (s *TransactionService) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *TransactionService) persist(ctx context.Context, tx *domain.Transaction) error {
	if s.store == nil {
		return nil
	}
	snapshot := tx.Clone()
	if err := s.store.Save(ctx, &snapshot); err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}
	return nil
}
