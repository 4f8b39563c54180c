package repo

import (
	"context"
	"fmt"
	"time"

	"sqlexpansion/internal/domain"
	"sqlexpansion/internal/infra"
	"sqlexpansion/internal/sqlinline"
)

const defaultTransitionLimit = 200

// TransitionRepositoryPG implements domain.TransitionRepository.
type TransitionRepositoryPG struct {
	sql   infra.SQLExecutor
	limit int
}

// NewTransitionRepository creates a transition journal backed by PostgreSQL.
func NewTransitionRepository(sql infra.SQLExecutor) *TransitionRepositoryPG {
	return &TransitionRepositoryPG{sql: sql, limit: defaultTransitionLimit}
}

// Append inserts one transition row.
func (r *TransitionRepositoryPG) Append(ctx context.Context, t domain.Transition) error {
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertTransition,
		t.QueryID,
		string(t.FromStatus),
		string(t.ToStatus),
		string(t.ErrorCode),
		t.TraceID,
		at,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// ListByQueryID returns the transitions of a job, oldest first.
func (r *TransitionRepositoryPG) ListByQueryID(ctx context.Context, queryID string) ([]domain.Transition, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListTransitions, queryID, r.limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var (
			t                       domain.Transition
			from, to, code, traceID string
		)
		if err := rows.Scan(&t.ID, &t.QueryID, &from, &to, &code, &traceID, &t.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.FromStatus = domain.Status(from)
		t.ToStatus = domain.Status(to)
		t.ErrorCode = domain.ErrorCode(code)
		t.TraceID = traceID
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// PurgeBefore deletes transitions older than cutoff and reports how many went.
func (r *TransitionRepositoryPG) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeTransitions, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge transitions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TransitionRepository = (*TransitionRepositoryPG)(nil)
