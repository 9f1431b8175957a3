package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a purchase transaction.
type State string

const (
	StateCreated   State = "CREATED"
	StatePending   State = "PENDING"
	StateRetrying  State = "RETRYING"
	StateSucceeded State = "SUCCEEDED"
	StateDeclined  State = "DECLINED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
	StateExpired   State = "EXPIRED"
)

// IsTerminal returns true for states from which no transition is possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateDeclined, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// IsCancellable returns true while the transaction may still be cancelled or expired.
func (s State) IsCancellable() bool {
	return s == StateCreated || s == StatePending || s == StateRetrying
}

// Attempt is one network round trip. Attempts are append-only.
type Attempt struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Sequence      int       `json:"sequence"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	Result        Outcome   `json:"result"`
	Late          bool      `json:"late,omitempty"` // arrived after the transaction terminated
}

// Transaction is the lifecycle record of a single purchase.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	Request        PurchaseRequest `json:"request"`
	IdempotencyKey IdempotencyKey  `json:"idempotency_key"`
	State          State           `json:"state"`
	AttemptCount   int             `json:"attempt_count"`
	Attempts       []Attempt       `json:"attempts"`
	CreatedAt      time.Time       `json:"created_at"`
	Deadline       *time.Time      `json:"deadline,omitempty"` // expires if still open at this instant
	FirstAttemptAt *time.Time      `json:"first_attempt_at,omitempty"`
	LastAttemptAt  *time.Time      `json:"last_attempt_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	TerminalResult *Outcome        `json:"terminal_result,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.State.IsTerminal()
}

// Clone returns a deep copy safe to hand to callers.
func (t *Transaction) Clone() Transaction {
	out := *t
	out.Request = t.Request.Clone()
	out.Attempts = make([]Attempt, len(t.Attempts))
	for i, a := range t.Attempts {
		a.Result = a.Result.Clone()
		out.Attempts[i] = a
	}
	if t.TerminalResult != nil {
		r := t.TerminalResult.Clone()
		out.TerminalResult = &r
	}
	out.Deadline = cloneTime(t.Deadline)
	out.FirstAttemptAt = cloneTime(t.FirstAttemptAt)
	out.LastAttemptAt = cloneTime(t.LastAttemptAt)
	out.CompletedAt = cloneTime(t.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
