package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through a fast local layer before the shared one,
// backfilling the local layer on remote hits. Writes go to both.
type LayeredCache struct {
	local  Service
	remote Service
}

var _ Service = (*LayeredCache)(nil)

func NewLayeredCache(local, remote Service) *LayeredCache {
	return &LayeredCache{local: local, remote: remote}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.remote.Set(ctx, key, value, ttl)
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.local.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	if err := c.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	// Backfill; the remote layer stays authoritative for the TTL.
	_ = c.local.Set(ctx, key, dest, time.Minute)
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.local.Delete(ctx, keys...); err != nil {
		return err
	}
	return c.remote.Delete(ctx, keys...)
}

func (c *LayeredCache) Close() error {
	if err := c.local.Close(); err != nil {
		return err
	}
	return c.remote.Close()
}
