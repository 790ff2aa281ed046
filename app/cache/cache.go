package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache implements the get-or-compute contract used by the detail enricher.
// Concurrent callers of the same key collapse into a single compute
// invocation and share its result or its failure. Compute failures are
// never stored.
type Cache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// TryGet returns the cached payload for key, computing and storing it on a
// miss. A store read or write failure degrades to computing the value; only
// a compute failure propagates to the caller.
func (c *Cache) TryGet(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, ok, err := c.store.Get(ctx, key)
		if err != nil {
			slog.Warn("Cache read failed, recomputing", "key", key, "error", err)
		} else if ok {
			return data, nil
		}

		data, err = compute(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			slog.Warn("Cache write failed", "key", key, "error", err)
		}
		return data, nil
	})

	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// TryGetJSON wraps TryGet for structured payloads, marshalling the computed
// value to JSON for storage.
func TryGetJSON[T any](ctx context.Context, c *Cache, key string, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, err := c.TryGet(ctx, key, func(ctx context.Context) ([]byte, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cached payload for key %s: %w", key, err)
	}
	return value, nil
}
