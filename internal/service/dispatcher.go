package service

import (
	"context"
	"sync"

	"inapppay/internal/core/domain"
	"inapppay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// dispatchEntry tracks delivery for one transaction. done is closed exactly
// once, when the terminal outcome is published.
type dispatchEntry struct {
	done      chan struct{}
	outcome   domain.Outcome
	callbacks []func(domain.Outcome)
}

// Dispatcher delivers each transaction's terminal outcome exactly once to
// every awaiting caller and registered callback.
type Dispatcher struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*dispatchEntry
	log     zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		entries: make(map[uuid.UUID]*dispatchEntry),
		log:     log,
	}
}

// Register prepares delivery for id. Registering twice is a no-op.
func (d *Dispatcher) Register(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; !ok {
		d.entries[id] = &dispatchEntry{done: make(chan struct{})}
	}
}

// Publish records the terminal outcome. Only the first call per id has any
// effect; it returns false for every later call.
func (d *Dispatcher) Publish(id uuid.UUID, outcome domain.Outcome) bool {
	d.mu.Lock()
	e, ok := d.entries[id]
	if !ok {
		e = &dispatchEntry{done: make(chan struct{})}
		d.entries[id] = e
	}
	select {
	case <-e.done:
		d.mu.Unlock()
		return false
	default:
	}
	e.outcome = outcome
	close(e.done)
	callbacks := e.callbacks
	e.callbacks = nil
	d.mu.Unlock()

	for _, fn := range callbacks {
		d.fire(id, fn, outcome)
	}
	return true
}

// Await blocks until id is terminal or ctx is done.
func (d *Dispatcher) Await(ctx context.Context, id uuid.UUID) (domain.Outcome, error) {
	d.mu.Lock()
	e, ok := d.entries[id]
	d.mu.Unlock()
	if !ok {
		return domain.Outcome{}, apperror.ErrTransactionNotFound()
	}

	select {
	case <-e.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return e.outcome.Clone(), nil
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}

// OnTerminal registers fn to run once with the terminal outcome. If the
// transaction is already terminal fn is scheduled immediately.
func (d *Dispatcher) OnTerminal(id uuid.UUID, fn func(domain.Outcome)) error {
	d.mu.Lock()
	e, ok := d.entries[id]
	if !ok {
		d.mu.Unlock()
		return apperror.ErrTransactionNotFound()
	}
	select {
	case <-e.done:
		outcome := e.outcome
		d.mu.Unlock()
		d.fire(id, fn, outcome)
	default:
		e.callbacks = append(e.callbacks, fn)
		d.mu.Unlock()
	}
	return nil
}

// Forget drops delivery state for id.
func (d *Dispatcher) Forget(id uuid.UUID) {
	d.mu.Lock()
	delete(d.entries, id)
	d.mu.Unlock()
}

func (d *Dispatcher) fire(id uuid.UUID, fn func(domain.Outcome), outcome domain.Outcome) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Interface("panic", r).Str("tx_id", id.String()).Msg("terminal callback panicked")
			}
		}()
		fn(outcome.Clone())
	}()
}
