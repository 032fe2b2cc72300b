package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"itemboard/store"
)

// DefaultTTL is how long a cached document lives.
const DefaultTTL = 5 * time.Minute

// Redis is the subset of the go-redis client the cache uses.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Collection adds a Redis read-through cache for single documents in
// front of another Collection.
type Collection struct {
	next store.Collection
	rdb  Redis
	ttl  time.Duration
	log  *zap.Logger

	// writes counts Set and Delete calls. A Get that saw it move while
	// filling the cache drops the entry it just wrote.
	writes atomic.Uint64
}

var _ store.Collection = (*Collection)(nil)

// New wraps next. A zero ttl means DefaultTTL.
func New(next store.Collection, rdb Redis, ttl time.Duration, log *zap.Logger) *Collection {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Collection{next: next, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(key string) string { return "item:" + key }

// Get serves key from Redis when cached, otherwise from the backing
// store. A ctx marked with store.Fresh skips the cached copy.
func (c *Collection) Get(ctx context.Context, key string) (store.Document, error) {
	if !store.IsFresh(ctx) {
		if doc, ok := c.cached(ctx, key); ok {
			return doc, nil
		}
	}

	seen := c.writes.Load()
	doc, err := c.next.Get(ctx, key)
	if err != nil {
		return store.Document{}, err
	}
	c.fill(ctx, key, doc)
	if c.writes.Load() != seen {
		// A write raced the read; what was cached may be older than the store.
		c.invalidate(ctx, key)
	}
	return doc, nil
}

func (c *Collection) cached(ctx context.Context, key string) (store.Document, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(key)).Result()
	switch {
	case err == nil:
		var fields bson.M
		if jerr := json.Unmarshal([]byte(val), &fields); jerr == nil {
			return store.Document{Key: key, Fields: normalize(fields)}, true
		}
		c.log.Warn("cache.decode.failed", zap.String("id", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache.get.failed", zap.String("id", key), zap.Error(err))
	}
	return store.Document{}, false
}

func (c *Collection) fill(ctx context.Context, key string, doc store.Document) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache.set.failed", zap.String("id", key), zap.Error(err))
	}
}

func (c *Collection) Set(ctx context.Context, key string, fields bson.M) error {
	c.writes.Add(1)
	if err := c.next.Set(ctx, key, fields); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *Collection) Delete(ctx context.Context, key string) error {
	c.writes.Add(1)
	if err := c.next.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *Collection) Watch(ctx context.Context) (<-chan store.Snapshot, error) {
	return c.next.Watch(ctx)
}

func (c *Collection) invalidate(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, cacheKey(key)).Err(); err != nil {
		c.log.Warn("cache.invalidate.failed", zap.String("id", key), zap.Error(err))
	}
}

// normalize turns JSON numbers back into integers where they are whole.
func normalize(fields bson.M) bson.M {
	for k, v := range fields {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			fields[k] = int64(f)
		}
	}
	return fields
}
