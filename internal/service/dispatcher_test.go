package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"inapppay/internal/core/domain"
	"inapppay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishFirstWins(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)

	assert.True(t, d.Publish(id, domain.Success(domain.Receipt{ID: "r1"})))
	assert.False(t, d.Publish(id, domain.Cancelled()))

	out, err := d.Await(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out.Kind)
	assert.Equal(t, "r1", out.Receipt.ID)
}

func TestDispatcher_AwaitBlocksUntilPublish(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)

	got := make(chan domain.Outcome, 1)
	go func() {
		out, err := d.Await(context.Background(), id)
		assert.NoError(t, err)
		got <- out
	}()

	select {
	case <-got:
		t.Fatal("await returned before publish")
	case <-time.After(20 * time.Millisecond):
	}

	d.Publish(id, domain.Declined("card_declined", "no"))
	select {
	case out := <-got:
		assert.Equal(t, domain.OutcomeDeclined, out.Kind)
	case <-time.After(time.Second):
		t.Fatal("await did not return")
	}
}

func TestDispatcher_AwaitHonoursContext(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Await(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_AwaitUnknown(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	_, err := d.Await(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrTransactionNotFound())
}

func TestDispatcher_OnTerminalFiresOnce(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{}, 2)
	require.NoError(t, d.OnTerminal(id, func(domain.Outcome) {
		mu.Lock()
		calls++
		mu.Unlock()
		done <- struct{}{}
	}))

	d.Publish(id, domain.Expired())
	d.Publish(id, domain.Cancelled())

	<-done
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestDispatcher_OnTerminalAfterPublish(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)
	d.Publish(id, domain.Cancelled())

	got := make(chan domain.Outcome, 1)
	require.NoError(t, d.OnTerminal(id, func(o domain.Outcome) { got <- o }))

	select {
	case o := <-got:
		assert.Equal(t, domain.OutcomeCancelled, o.Kind)
	case <-time.After(time.Second):
		t.Fatal("late callback not fired")
	}
}

func TestDispatcher_CallbackPanicIsContained(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)

	got := make(chan struct{}, 1)
	require.NoError(t, d.OnTerminal(id, func(domain.Outcome) { panic("boom") }))
	require.NoError(t, d.OnTerminal(id, func(domain.Outcome) { got <- struct{}{} }))
	d.Publish(id, domain.Cancelled())

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second callback not fired")
	}
}

func TestDispatcher_Forget(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	id := uuid.New()
	d.Register(id)
	d.Forget(id)

	err := d.OnTerminal(id, func(domain.Outcome) {})
	assert.ErrorIs(t, err, apperror.ErrTransactionNotFound())
}
