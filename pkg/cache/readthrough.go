package cache

import (
	"context"
	"time"
)

// GetOrLoad returns the cached value for key if present and unexpired,
// otherwise invokes loader, stores the result with the given TTL and returns
// it. Backend failures on either side degrade to a plain loader call; a
// broken cache costs latency, never correctness. Concurrent misses may each
// invoke the loader; there is deliberately no single-flight here.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	var cached T
	if c != nil {
		if err := c.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	value, err := loader()
	if err != nil {
		return value, err
	}

	if c != nil {
		_ = c.Set(ctx, key, value, ttl)
	}
	return value, nil
}
