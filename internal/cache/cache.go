// Package cache memoizes upstream worksheet fetches behind an explicit,
// injectable interface with a fixed time-to-live per entry.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Cache stores raw worksheet values by key.
type Cache interface {
	// Get returns the cached values and true on a live hit.
	Get(ctx context.Context, key string) ([][]string, bool, error)
	// Set stores values under key for the cache's TTL.
	Set(ctx context.Context, key string, values [][]string) error
	// Delete invalidates key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendStore  = "store"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int
	Redis      RedisCmdable
	RedisKey   string
	Store      SheetStore
}

// New builds the configured backend.
func New(opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendMemory:
		return NewMemory(opts.MaxEntries, opts.TTL), nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, eris.New("cache: redis backend requires a client")
		}
		return NewRedis(opts.Redis, opts.RedisKey, opts.TTL), nil
	case BackendStore:
		if opts.Store == nil {
			return nil, eris.New("cache: store backend requires a store")
		}
		return NewStoreCache(opts.Store, opts.TTL), nil
	default:
		return nil, eris.Errorf("cache: unknown backend %q", opts.Backend)
	}
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) ([][]string, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, [][]string) error         { return nil }
func (Nop) Delete(context.Context, string) error                  { return nil }
