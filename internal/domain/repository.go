package domain

import (
	"context"
	"time"
)

// Transition is one status change of an expansion job.
type Transition struct {
	ID         int64     `json:"id"`
	QueryID    string    `json:"query_id"`
	FromStatus Status    `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	ErrorCode  ErrorCode `json:"error_code,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	At         time.Time `json:"at"`
}

// TransitionRepository persists the status history of expansion jobs.
type TransitionRepository interface {
	Append(ctx context.Context, t Transition) error
	ListByQueryID(ctx context.Context, queryID string) ([]Transition, error)
}
