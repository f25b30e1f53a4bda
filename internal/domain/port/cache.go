package port

import (
	"context"
	"time"
)

type CachePort interface {
	// Get returns found=false with a nil error when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// SetIfAbsent writes value with ttl only when key holds nothing; an existing entry keeps its TTL.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (stored bool, err error)
	Ping(ctx context.Context) error
	Close() error
}
