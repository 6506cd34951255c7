package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var errStaleGeneration = errors.New("cache generation changed")

// ViewCache stores JSON-encoded read views of type T with an optional TTL.
// Reads and writes are best effort; invalidations report failures so callers
// can tell a stale view from a dropped one.
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl}
}

// Get returns (nil, false) on a miss, a connection error or a bad payload.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("ViewCache: read error for key %s: %v", key, err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("ViewCache: decode error for key %s: %v", key, err)
		return nil, false
	}
	return &v, true
}

// Generation returns the invalidation counter for key. A key that was never
// invalidated is at generation 0.
func (c *ViewCache[T]) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read generation for %s: %w", key, err)
	}
	return gen, nil
}

// SetIfGeneration stores value only while the generation of key still equals
// gen, so a view built before an invalidation never overwrites it. It reports
// whether the value was stored.
func (c *ViewCache[T]) SetIfGeneration(ctx context.Context, key string, value *T, gen int64) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("ViewCache: marshal error for key %s: %v", key, err)
		return false
	}

	genKey := generationKey(key)
	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != goredis.Nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleGeneration), errors.Is(err, goredis.TxFailedErr):
		log.Printf("ViewCache: skipped stale write for key %s (generation %d)", key, gen)
	default:
		log.Printf("ViewCache: write error for key %s: %v", key, err)
	}
	return false
}

// Invalidate drops the stored view and bumps the generation of key in one
// transaction.
func (c *ViewCache[T]) Invalidate(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cache key %s: %w", key, err)
	}
	return nil
}

func generationKey(key string) string {
	return key + ":gen"
}
