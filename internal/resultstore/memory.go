package resultstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"sqlexpansion/internal/domain"
)

// Memory is an in-process Store bounded by entry count with least recently
// used eviction.
type Memory struct {
	cache *expirable.LRU[string, domain.Record]
}

// NewMemory creates a Memory store. Non-positive arguments fall back to the defaults.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{cache: expirable.NewLRU[string, domain.Record](maxEntries, nil, ttl)}
}

func (m *Memory) Put(_ context.Context, id string, rec domain.Record) error {
	m.cache.Add(id, rec)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.Record, bool, error) {
	rec, ok := m.cache.Get(id)
	return rec, ok, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.cache.Len()
}

var _ Store = (*Memory)(nil)
