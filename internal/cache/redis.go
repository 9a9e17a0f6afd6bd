package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "helpdesk:q:"
	redisTagPrefix = "helpdesk:tag:"
	redisGenPrefix = "helpdesk:gen:"
)

var errSuperseded = errors.New("generation moved")

// RedisStore shares cached results between API replicas. Each entity has a Redis set
// of the keys written for it; invalidation bumps the entity's generation, then deletes
// the members and the set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore; ttl <= 0 keeps entries until invalidated
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (r *RedisStore) Generation(ctx context.Context, entity string) (int64, error) {
	gen, err := r.client.Get(ctx, redisGenPrefix+entity).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis generation: %w", err)
	}
	return gen, nil
}

// Set writes value under WATCH of the entity generation. A write that lost the race
// with Invalidate is dropped.
func (r *RedisStore) Set(ctx context.Context, key Key, value []byte, gen int64) error {
	k := redisKeyPrefix + key.String()
	tag := redisTagPrefix + key.Entity
	genKey := redisGenPrefix + key.Entity

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, value, r.ttl)
			pipe.SAdd(ctx, tag, k)
			if r.ttl > 0 {
				pipe.Expire(ctx, tag, r.ttl)
			}
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errSuperseded), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("redis set: %w", err)
	}
}

func (r *RedisStore) Invalidate(ctx context.Context, entities ...string) error {
	for _, entity := range Expand(entities...) {
		if err := r.client.Incr(ctx, redisGenPrefix+entity).Err(); err != nil {
			return fmt.Errorf("redis bump %s: %w", entity, err)
		}
		tag := redisTagPrefix + entity
		keys, err := r.client.SMembers(ctx, tag).Result()
		if err != nil {
			return fmt.Errorf("redis members %s: %w", tag, err)
		}
		keys = append(keys, tag)
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis invalidate %s: %w", tag, err)
		}
	}
	return nil
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
