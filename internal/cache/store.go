package cache

import (
	"context"
	"time"
)

// SheetStore is the persistence surface used by StoreCache. A miss returns
// nil values and no error.
type SheetStore interface {
	GetCachedSheet(ctx context.Context, key string) ([][]string, error)
	SetCachedSheet(ctx context.Context, key string, values [][]string, ttl time.Duration) error
	DeleteCachedSheet(ctx context.Context, key string) error
}

// StoreCache keeps worksheet values in the run store's sheet_cache table.
type StoreCache struct {
	store SheetStore
	ttl   time.Duration
}

// NewStoreCache wraps a SheetStore.
func NewStoreCache(s SheetStore, ttl time.Duration) *StoreCache {
	return &StoreCache{store: s, ttl: ttl}
}

// Get implements Cache.
func (c *StoreCache) Get(ctx context.Context, key string) ([][]string, bool, error) {
	values, err := c.store.GetCachedSheet(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return values, values != nil, nil
}

// Set implements Cache.
func (c *StoreCache) Set(ctx context.Context, key string, values [][]string) error {
	return c.store.SetCachedSheet(ctx, key, values, c.ttl)
}

// Delete implements Cache.
func (c *StoreCache) Delete(ctx context.Context, key string) error {
	return c.store.DeleteCachedSheet(ctx, key)
}
