// Package cache implements the operation cache: an entry-bounded LRU (and
// a sharded variant for concurrent facades) memoizing filter and grid
// results.
//
// Keys embed the universe generation, so invalidation is implicit: after a
// mutation bumps the generation, entries for older generations can never be
// looked up again and age out through normal LRU eviction or an explicit
// Clear. There is no time-based expiry anywhere in this package; cache
// validity is a pure function of "did the universe change".
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/multicardz/cardgrid/resource"
)

// Key identifies one memoized operation result.
type Key struct {
	// Kind separates result families sharing a canonical form
	// (e.g. filter vs grid).
	Kind uint8
	// Generation of the universe snapshot the result was computed from.
	Generation uint64
	// Canonical is the canonicalized zone-configuration string; tag-set
	// order never affects it.
	Canonical string
}

// LRU is a mutex-guarded, entry-bounded LRU cache.
type LRU struct {
	mu        sync.Mutex
	capacity  int
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value any
	cost  int64
}

// NewLRU creates an LRU holding at most capacity entries.
// If rc is non-nil it is charged with each entry's reported cost.
func NewLRU(capacity int, rc *resource.Controller) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached result.
func (c *LRU) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores a result. cost is an approximate byte size charged against the
// resource controller; a denied reservation skips caching (the cache is an
// optimization layer, not a source of truth).
func (c *LRU) Set(key Key, value any, cost int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		e := ent.Value.(*entry)
		if c.rc != nil && cost > e.cost {
			if !c.rc.TryAcquireMemory(cost - e.cost) {
				return
			}
		} else if c.rc != nil && cost < e.cost {
			c.rc.ReleaseMemory(e.cost - cost)
		}
		e.value = value
		e.cost = cost
		c.evictList.MoveToFront(ent)
		return
	}

	for c.evictList.Len() >= c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	if c.rc != nil && !c.rc.TryAcquireMemory(cost) {
		return
	}
	ent := c.evictList.PushFront(&entry{key: key, value: value, cost: cost})
	c.items[key] = ent
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ent := c.evictList.Front(); ent != nil; {
		next := ent.Next()
		if predicate(ent.Value.(*entry).key) {
			c.removeElement(ent)
		}
		ent = next
	}
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.Invalidate(func(Key) bool { return true })
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit/miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRU) removeElement(ent *list.Element) {
	e := ent.Value.(*entry)
	c.evictList.Remove(ent)
	delete(c.items, e.key)
	if c.rc != nil {
		c.rc.ReleaseMemory(e.cost)
	}
}
