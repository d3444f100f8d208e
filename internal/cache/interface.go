package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the key is not present (or expired)
var ErrCacheMiss = errors.New("cache miss")

// Cache stores byte snapshots with a TTL. It keeps the last successful node
// RPC responses so diagnostics keep working while the node is unreachable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	Close() error
}

// Ensure BadgerCache implements Cache
var _ Cache = (*BadgerCache)(nil)

// Options contains cache configuration options
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
}

// DefaultOptions returns default cache options
func DefaultOptions() Options {
	return Options{}
}
