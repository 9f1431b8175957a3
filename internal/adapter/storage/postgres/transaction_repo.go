package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inapppay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectTransaction = `SELECT id, idempotency_key, state, request, attempt_count, created_at,
	first_attempt_at, last_attempt_at, completed_at, terminal_result, deadline
	FROM purchase_transactions`

// TransactionRepo implements ports.TransactionStore. Attempts are
// append-only rows keyed by (transaction_id, sequence).
type TransactionRepo struct {
	pool Pool
}

func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Save upserts the transaction row and inserts attempts not yet stored.
func (r *TransactionRepo) Save(ctx context.Context, t *domain.Transaction) error {
	request, err := json.Marshal(t.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var terminal []byte
	if t.TerminalResult != nil {
		if terminal, err = json.Marshal(t.TerminalResult); err != nil {
			return fmt.Errorf("marshal terminal result: %w", err)
		}
	}

	upsert := `INSERT INTO purchase_transactions (id, idempotency_key, state, request, attempt_count, created_at,
		first_attempt_at, last_attempt_at, completed_at, terminal_result, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, attempt_count = EXCLUDED.attempt_count,
		first_attempt_at = EXCLUDED.first_attempt_at, last_attempt_at = EXCLUDED.last_attempt_at,
		completed_at = EXCLUDED.completed_at, terminal_result = EXCLUDED.terminal_result`

	insertAttempt := `INSERT INTO purchase_attempts (transaction_id, sequence, started_at, ended_at, result, late)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (transaction_id, sequence) DO NOTHING`

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsert,
			t.ID, t.IdempotencyKey.String(), string(t.State), request, t.AttemptCount, t.CreatedAt,
			t.FirstAttemptAt, t.LastAttemptAt, t.CompletedAt, terminal, t.Deadline,
		)
		if err != nil {
			return fmt.Errorf("upsert transaction: %w", err)
		}
		for _, a := range t.Attempts {
			result, err := json.Marshal(a.Result)
			if err != nil {
				return fmt.Errorf("marshal attempt %d: %w", a.Sequence, err)
			}
			if _, err := tx.Exec(ctx, insertAttempt, t.ID, a.Sequence, a.StartedAt, a.EndedAt, result, a.Late); err != nil {
				return fmt.Errorf("insert attempt %d: %w", a.Sequence, err)
			}
		}
		return nil
	})
}

// Get returns nil, nil when id is unknown.
func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, selectTransaction+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if err := r.loadAttempts(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListOpen returns every non-terminal transaction, oldest first.
func (r *TransactionRepo) ListOpen(ctx context.Context) ([]domain.Transaction, error) {
	query := selectTransaction + ` WHERE state IN ($1, $2, $3) ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query,
		string(domain.StateCreated), string(domain.StatePending), string(domain.StateRetrying))
	if err != nil {
		return nil, fmt.Errorf("list open transactions: %w", err)
	}

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	for i := range txns {
		if err := r.loadAttempts(ctx, &txns[i]); err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// Delete removes the transaction; its attempts cascade.
func (r *TransactionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM purchase_transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) loadAttempts(ctx context.Context, t *domain.Transaction) error {
	rows, err := r.pool.Query(ctx, `SELECT sequence, started_at, ended_at, result, late
		FROM purchase_attempts WHERE transaction_id = $1 ORDER BY sequence`, t.ID)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	t.Attempts = []domain.Attempt{}
	for rows.Next() {
		a := domain.Attempt{TransactionID: t.ID}
		var result []byte
		if err := rows.Scan(&a.Sequence, &a.StartedAt, &a.EndedAt, &result, &a.Late); err != nil {
			return fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(result, &a.Result); err != nil {
			return fmt.Errorf("decode attempt %d: %w", a.Sequence, err)
		}
		t.Attempts = append(t.Attempts, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attempts: %w", err)
	}
	t.AttemptCount = len(t.Attempts)
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                 domain.Transaction
		key, state        string
		request, terminal []byte
		first, last, done *time.Time
	)
	err := row.Scan(&t.ID, &key, &state, &request, &t.AttemptCount, &t.CreatedAt,
		&first, &last, &done, &terminal, &t.Deadline)
	if err != nil {
		return nil, err
	}

	t.IdempotencyKey = domain.IdempotencyKey(key)
	t.State = domain.State(state)
	t.FirstAttemptAt, t.LastAttemptAt, t.CompletedAt = first, last, done
	if err := json.Unmarshal(request, &t.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if len(terminal) > 0 {
		var o domain.Outcome
		if err := json.Unmarshal(terminal, &o); err != nil {
			return nil, fmt.Errorf("decode terminal result: %w", err)
		}
		t.TerminalResult = &o
	}
	return &t, nil
}
