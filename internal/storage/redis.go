package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Every command is traced through
// the OpenTelemetry hook.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *errors.Logger
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.RedisConfig, logger *errors.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "redis address is required", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	store := &RedisStore{client: client, keyPrefix: cfg.KeyPrefix, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("failed to connect to Redis at %s", cfg.Address), err)
	}

	if logger != nil {
		logger.Info("Connected to Redis", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	}
	return store, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	// Del on a missing key returns 0 without an error
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
