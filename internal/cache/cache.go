// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package cache provides a thread-safe in-memory TTL cache for read-only API
// responses.
//
// Entries expire lazily on Get and are swept by a background loop. Writers
// of the underlying data call Clear once their change is committed; a load
// that was running while Clear happened does not store its result, so a
// stale read can never outlive the invalidation.
//
//	c := cache.New(time.Minute)
//	defer c.Close()
//	v, hit, err := c.GetOrLoad(cache.GenerateKey("filings", filter), load)
package cache

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache holds values for a fixed TTL. A Cache created with a zero TTL is
// disabled: every Get misses and Set is a no-op.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	generation uint64
	stats      Stats

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache whose entries live for ttl. When ttl is positive a
// cleanup goroutine runs until Close.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	c.stats.LastCleanup = c.now()
	if ttl > 0 {
		go c.cleanupLoop(max(ttl, time.Minute))
	}
	return c
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns the value stored for key if it has not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.count(&c.stats.Misses, 1)
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a Set may have replaced the entry meanwhile.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
			c.stats.TotalKeys = int64(len(c.entries))
		}
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.count(&c.stats.Hits, 1)
	return e.data, true
}

// Set stores value under key for the cache TTL.
func (c *Cache) Set(key string, value interface{}) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *Cache) setLocked(key string, value interface{}) {
	c.entries[key] = entry{data: value, expiresAt: c.now().Add(c.ttl)}
	c.stats.TotalKeys = int64(len(c.entries))
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors are never cached. hit reports whether load was skipped.
func (c *Cache) GetOrLoad(key string, load func() (interface{}, error)) (value interface{}, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	if !c.Enabled() {
		v, err := load()
		return v, false, err
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	v, err := load()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.setLocked(key, v)
	}
	c.mu.Unlock()
	return v, false, nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
	}
	c.mu.Unlock()
}

// Clear drops every entry and invalidates loads that are still running.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stats.Evictions += int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.generation++
	c.stats.TotalKeys = 0
	c.mu.Unlock()
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) count(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries.
func (c *Cache) cleanup() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.LastCleanup = now
}

// GenerateKey builds a compact key from a method name and its parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	return method + ":" + strconv.FormatUint(xxhash.Sum64(data), 16)
}
