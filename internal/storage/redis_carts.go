package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/surtidora/api/internal/apperr"
)

// RedisCarts stores cart snapshots in Redis. Each key expires after ttl of
// inactivity; every write refreshes it.
type RedisCarts struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCarts(client *redis.Client, ttl time.Duration) *RedisCarts {
	return &RedisCarts{client: client, ttl: ttl}
}

func (r *RedisCarts) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes the snapshot inside MULTI/EXEC so the value and its TTL land
// together.
func (r *RedisCarts) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.ttl)
		return nil
	})
	return err
}

// Delete removes the snapshot; an absent key is not an error.
func (r *RedisCarts) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
