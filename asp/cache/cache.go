// Package cache holds solved results in process memory, keyed by query
// fingerprint and bounded by a total byte budget with LRU eviction.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// DefaultCapacityBytes bounds the cache when no explicit budget is
// configured.
const DefaultCapacityBytes int64 = 16 << 20

// entryOverheadBytes approximates the bookkeeping cost of one cached
// result beyond its string payloads.
const entryOverheadBytes int64 = 160

// ResultCache is a byte-budget LRU cache of solve results. Results are
// copied on the way in and out, so callers can mutate what they hold
// without corrupting the cache.
type ResultCache struct {
	mu       sync.Mutex
	capacity int64
	used     int64
	entries  map[uint64]*entry
	head     *entry
	tail     *entry
	now      func() time.Time
	logger   zerolog.Logger
}

type entry struct {
	fingerprint uint64
	result      ports.Result
	size        int64
	prev        *entry
	next        *entry
}

// New creates a cache bounded by capacityBytes. A non-positive budget
// falls back to DefaultCapacityBytes.
func New(capacityBytes int64, logger zerolog.Logger) *ResultCache {
	if capacityBytes <= 0 {
		capacityBytes = DefaultCapacityBytes
	}
	return &ResultCache{
		capacity: capacityBytes,
		entries:  make(map[uint64]*entry),
		now:      time.Now,
		logger:   logger.With().Str("component", "result_cache").Logger(),
	}
}

// Lookup returns a copy of the cached result for fingerprint. An entry
// whose validity window has passed is evicted and reported as a miss; a
// hit promotes the entry to most recently used.
func (c *ResultCache) Lookup(fingerprint uint64) (ports.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[fingerprint]
	if !exists {
		return ports.Result{}, false
	}

	if !e.result.ValidUntil.IsZero() && !c.now().Before(e.result.ValidUntil) {
		c.dropEntry(e)
		c.logger.Debug().
			Uint64("fingerprint", e.fingerprint).
			Time("valid_until", e.result.ValidUntil).
			Msg("cached result expired")
		return ports.Result{}, false
	}

	c.moveToFront(e)
	return copyResult(e.result), true
}

// Insert stores a copy of res under fingerprint. Any existing entry for
// the fingerprint is removed first, so the insert always carries fresh
// size and recency. A result whose estimated size alone exceeds the
// budget is dropped; otherwise entries are evicted strictly from the
// cold tail until the new one fits.
func (c *ResultCache) Insert(fingerprint uint64, res ports.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, exists := c.entries[fingerprint]; exists {
		c.dropEntry(old)
	}

	size := estimateSize(res)
	if size > c.capacity {
		c.logger.Debug().
			Uint64("fingerprint", fingerprint).
			Int64("size_bytes", size).
			Int64("capacity_bytes", c.capacity).
			Msg("result exceeds cache budget, not cached")
		return
	}

	for c.used+size > c.capacity && c.tail != nil {
		evicted := c.tail
		c.dropEntry(evicted)
		c.logger.Debug().
			Uint64("fingerprint", evicted.fingerprint).
			Int64("size_bytes", evicted.size).
			Msg("evicted least recently used result")
	}

	e := &entry{
		fingerprint: fingerprint,
		result:      copyResult(res),
		size:        size,
	}
	c.addToFront(e)
	c.entries[fingerprint] = e
	c.used += size
}

// Len reports the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SizeBytes reports the estimated bytes currently held.
func (c *ResultCache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// dropEntry unlinks e and releases its budget. Callers hold the mutex.
func (c *ResultCache) dropEntry(e *entry) {
	c.removeEntry(e)
	delete(c.entries, e.fingerprint)
	c.used -= e.size
}

// moveToFront marks e as most recently used.
func (c *ResultCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.removeEntry(e)
	c.addToFront(e)
}

// addToFront links e at the hot end of the recency list.
func (c *ResultCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil

	if c.head != nil {
		c.head.prev = e
	}
	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

// removeEntry unlinks e from the recency list.
func (c *ResultCache) removeEntry(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}

	e.prev = nil
	e.next = nil
}

// estimateSize approximates the memory held by a cached result: a fixed
// per-entry overhead plus the content length of every string it carries.
func estimateSize(res ports.Result) int64 {
	size := entryOverheadBytes
	size += int64(len(res.SolveID))
	size += int64(len(res.OffendingPart))
	for _, a := range res.Answers {
		size += int64(len(a))
	}
	for _, d := range res.Diagnostics.Errors {
		size += int64(len(d))
	}
	for _, w := range res.Diagnostics.Warnings {
		size += int64(len(w))
	}
	return size
}

// copyResult clones the slices so cached state never aliases caller
// state.
func copyResult(res ports.Result) ports.Result {
	out := res
	if res.Answers != nil {
		out.Answers = append([]string(nil), res.Answers...)
	}
	if res.Diagnostics.Errors != nil {
		out.Diagnostics.Errors = append([]string(nil), res.Diagnostics.Errors...)
	}
	if res.Diagnostics.Warnings != nil {
		out.Diagnostics.Warnings = append([]string(nil), res.Diagnostics.Warnings...)
	}
	return out
}
