package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sqlexpansion/internal/domain"
)

const defaultKeyPrefix = "sqlexpansion:result:"

// Redis stores records as JSON strings with a server-side expiry. Capacity is
// left to the server's maxmemory policy.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis creates a Redis-backed Store.
func NewRedis(client redis.Cmdable, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Redis{client: client, ttl: ttl, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) Put(ctx context.Context, id string, rec domain.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("resultstore/redis: encode %s: %w", id, err)
	}
	if err := r.client.Set(ctx, r.key(id), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("resultstore/redis: put %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (domain.Record, bool, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Record{}, false, nil
		}
		return domain.Record{}, false, fmt.Errorf("resultstore/redis: get %s: %w", id, err)
	}
	var rec domain.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.Record{}, false, fmt.Errorf("resultstore/redis: decode %s: %w", id, err)
	}
	return rec, true, nil
}

var _ Store = (*Redis)(nil)
