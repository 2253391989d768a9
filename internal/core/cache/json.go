package cache

import (
	"context"
	"encoding/json"
	"time"
)

// LoadJSON is GetOrLoad for JSON-encoded values. A nil cache calls load
// directly. An entry that no longer decodes into T is dropped and reloaded.
func LoadJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	if c == nil {
		return load(ctx)
	}
	encode := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	b, err := c.GetOrLoad(ctx, key, ttl, encode)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if json.Unmarshal(b, out) == nil {
		return out, nil
	}

	_ = c.Delete(ctx, key)
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if fresh, err := json.Marshal(v); err == nil {
		_ = c.RDB.Set(ctx, key, fresh, ttl).Err()
	}
	return v, nil
}
