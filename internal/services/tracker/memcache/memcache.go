// Package memcache memoizes successful single-byte reads for the length of
// one evaluation pass, so composite checks that touch the same addresses
// (the pokedex bitmap, the badge byte) hit the emulator once per pass.
package memcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize fits the largest pokedex bitmap plus a full item pocket.
const DefaultSize = 512

// ByteReader is the uncached source.
type ByteReader interface {
	ReadByte(ctx context.Context, address uint32) (byte, bool)
}

// Cache is a read-through byte cache. It is not safe for concurrent use
// across passes; callers Purge it at the start of every pass.
type Cache struct {
	source ByteReader
	values *lru.Cache[uint32, byte]

	hits   int
	misses int
}

// New wraps source with a cache holding at most size addresses.
func New(source ByteReader, size int) (*Cache, error) {
	if source == nil {
		return nil, fmt.Errorf("byte reader is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	values, err := lru.New[uint32, byte](size)
	if err != nil {
		return nil, fmt.Errorf("create read cache: %w", err)
	}
	return &Cache{source: source, values: values}, nil
}

// ReadByte returns a cached value or reads through. Failed reads are not
// cached, so a later check in the same pass retries the address.
func (c *Cache) ReadByte(ctx context.Context, address uint32) (byte, bool) {
	if value, ok := c.values.Get(address); ok {
		c.hits++
		return value, true
	}
	c.misses++
	value, ok := c.source.ReadByte(ctx, address)
	if !ok {
		return 0, false
	}
	c.values.Add(address, value)
	return value, true
}

// Purge drops every cached value and resets the counters.
func (c *Cache) Purge() {
	c.values.Purge()
	c.hits = 0
	c.misses = 0
}

// Stats returns hit and miss counts since the last Purge.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	return c.values.Len()
}
