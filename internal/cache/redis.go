package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smartdate/internal/model"
)

// LatestKey is the Redis key holding the latest record.
const LatestKey = "smartdate:latest"

// Options configures the Redis connection.
type Options struct {
	// Redis server address.
	Address string
	// Password required when connecting to the Redis server.
	Password string
	// DB to connect to.
	DB int
}

// RedisCache shares the latest record across subscriber instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache opens a client for options. The connection is established
// lazily by the first command.
func NewRedisCache(options Options) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:        options.Address,
			Password:    options.Password,
			DB:          options.DB,
			DialTimeout: 2 * time.Second,
		}),
	}
}

// Ping tests connectivity (PONG should be returned).
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) SetLatest(ctx context.Context, rec model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode latest record: %w", err)
	}
	if err := c.client.Set(ctx, LatestKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store latest record: %w", err)
	}
	return nil
}

func (c *RedisCache) Latest(ctx context.Context) (model.Record, bool, error) {
	data, err := c.client.Get(ctx, LatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Record{}, false, nil
	}
	if err != nil {
		return model.Record{}, false, fmt.Errorf("failed to load latest record: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Record{}, false, fmt.Errorf("failed to decode latest record: %w", err)
	}
	return rec, true, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
