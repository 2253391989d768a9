package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB *redis.Client
	sf  singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// GetOrLoad reads key, and on a miss runs load once per key across
// concurrent callers, storing its result for ttl. Redis errors degrade to a
// direct load.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	b, err := c.RDB.Get(ctx, key).Bytes()
	if err == nil {
		return b, nil
	}
	cacheUp := errors.Is(err, redis.Nil)

	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if cacheUp {
			_ = c.RDB.Set(ctx, key, b, ttl).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c.sf.Forget(keys[0])
	for _, k := range keys[1:] {
		c.sf.Forget(k)
	}
	return c.RDB.Del(ctx, keys...).Err()
}
