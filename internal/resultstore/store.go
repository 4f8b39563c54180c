// Package resultstore keeps the latest record of every expansion job for a
// bounded time. Entries expire a fixed TTL after their most recent write.
package resultstore

import (
	"context"
	"time"

	"sqlexpansion/internal/domain"
)

const (
	DefaultTTL        = 120 * time.Second
	DefaultMaxEntries = 1_000_000
)

// Store is a keyed record store. Each key is updated atomically; there is no
// cross-key ordering.
type Store interface {
	// Put overwrites the record under id and restarts its expiry.
	Put(ctx context.Context, id string, rec domain.Record) error
	// Get returns the current record; ok is false when it never existed or expired.
	Get(ctx context.Context, id string) (rec domain.Record, ok bool, err error)
}
