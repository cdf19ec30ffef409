package cache

import (
	"hash/maphash"
	"sync"

	"github.com/multicardz/cardgrid/resource"
)

const numShards = 64

// Sharded is a 64-way sharded LRU for high-concurrency facades. Shard
// selection hashes the full key, so lock contention spreads across shards
// while each individual key still maps to exactly one LRU.
type Sharded struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

// NewSharded creates a sharded cache. The entry capacity is divided evenly
// across shards, with a minimum of one entry per shard.
func NewSharded(capacity int, rc *resource.Controller) *Sharded {
	shardCapacity := capacity / numShards
	if shardCapacity < 1 {
		shardCapacity = 1
	}

	s := &Sharded{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRU(shardCapacity, rc)
	}
	return s
}

func (s *Sharded) shard(key Key) *LRU {
	var h maphash.Hash
	h.SetSeed(s.seed)

	var hdr [9]byte
	hdr[0] = key.Kind
	for i := 0; i < 8; i++ {
		hdr[1+i] = byte(key.Generation >> (8 * i))
	}
	_, _ = h.Write(hdr[:])
	_, _ = h.WriteString(key.Canonical)

	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached result.
func (s *Sharded) Get(key Key) (any, bool) {
	return s.shard(key).Get(key)
}

// Set stores a result.
func (s *Sharded) Set(key Key, value any, cost int64) {
	s.shard(key).Set(key, value, cost)
}

// Invalidate removes entries matching the predicate from every shard.
func (s *Sharded) Invalidate(predicate func(Key) bool) {
	var wg sync.WaitGroup
	wg.Add(numShards)
	for i := range numShards {
		go func(shard *LRU) {
			defer wg.Done()
			shard.Invalidate(predicate)
		}(s.shards[i])
	}
	wg.Wait()
}

// Clear drops every entry in every shard.
func (s *Sharded) Clear() {
	s.Invalidate(func(Key) bool { return true })
}

// Len returns the total number of cached entries.
func (s *Sharded) Len() int {
	var total int
	for i := range numShards {
		total += s.shards[i].Len()
	}
	return total
}

// Stats returns aggregated hit/miss counters.
func (s *Sharded) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
