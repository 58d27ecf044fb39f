// Package storage hands validated resume documents off to transient
// key/value storage where the resume editor picks them up.
package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = stderrors.New("storage: key not found")

// Store is a key/value store with per-key expiry.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewStore creates the store selected by cfg.Driver.
func NewStore(cfg config.StorageConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(&cfg.Redis, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported storage driver: %s", cfg.Driver), nil)
	}
}
