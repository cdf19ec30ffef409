package cardgrid

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/multicardz/cardgrid/codec"
	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/engine"
	"github.com/multicardz/cardgrid/grid"
	"github.com/multicardz/cardgrid/internal/cache"
	"github.com/multicardz/cardgrid/resource"
	"github.com/multicardz/cardgrid/universe"
	"github.com/multicardz/cardgrid/zone"
)

const (
	kindFilter uint8 = 1
	kindGrid   uint8 = 2
)

// TierCached reports a result served from the operation cache in metrics.
const TierCached = "cached"

// TierRejected reports a request that failed validation before any tier ran.
const TierRejected = "rejected"

// opCache is satisfied by both the plain and the sharded LRU.
type opCache interface {
	Get(cache.Key) (any, bool)
	Set(key cache.Key, value any, cost int64)
	Clear()
	Len() int
	Stats() (hits, misses int64)
}

// Engine is the facade around the universe, the set-operations engine, the
// grid partitioner and the operation cache.
//
// Reads (Filter, Grid) run against immutable snapshots and may be called
// from any number of goroutines. Mutations (PutCard, DeleteCard,
// ReplaceAll, ImportSnapshot) are serialized by a single-writer lock and
// publish a fresh snapshot with a bumped generation as their last step.
type Engine struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	compute *engine.Engine
	cache   opCache

	mu      sync.Mutex // single-writer discipline for mutations
	builder *universe.Builder
	snap    atomic.Pointer[universe.Snapshot]
}

// New creates an engine with an empty universe at generation zero.
func New(optFns ...Option) *Engine {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	e := &Engine{
		opts:    o,
		logger:  o.logger,
		metrics: o.metrics,
		rc:      resource.NewController(o.resourceCfg),
		builder: universe.NewBuilder(nil),
	}

	o.engineOpts.OnIndexRebuild = func(cards int, d time.Duration) {
		e.metrics.RecordIndexRebuild(cards, d)
		e.logger.Debug("bitmap index rebuilt", "cards", cards, "duration", d)
	}
	e.compute = engine.New(o.engineOpts, e.rc)

	if o.shardedCache {
		e.cache = cache.NewSharded(o.cacheCapacity, e.rc)
	} else {
		e.cache = cache.NewLRU(o.cacheCapacity, e.rc)
	}

	e.snap.Store(e.builder.Publish())
	return e
}

// Snapshot returns the current immutable universe snapshot.
func (e *Engine) Snapshot() *universe.Snapshot { return e.snap.Load() }

// Generation returns the current universe generation.
func (e *Engine) Generation() uint64 { return e.snap.Load().Generation() }

// Len returns the number of cards in the universe.
func (e *Engine) Len() int { return e.snap.Load().Len() }

// TagUsage returns the number of cards currently bearing the tag; zero for
// a tag the universe has never seen.
func (e *Engine) TagUsage(name string) int {
	view := e.snap.Load().Tags()
	id, ok := view.Lookup(name)
	if !ok {
		return 0
	}
	return view.UsageCount(id)
}

// PutCard creates or replaces a card with the given tag set. Returns false
// when the card already had exactly these tags (no new generation).
func (e *Engine) PutCard(key core.CardKey, tags ...string) bool {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.builder.Put(key, tags) {
		return false
	}
	e.publishLocked(start)
	return true
}

// DeleteCard removes a card. Returns false for an unknown key.
func (e *Engine) DeleteCard(key core.CardKey) bool {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.builder.Delete(key) {
		return false
	}
	e.publishLocked(start)
	return true
}

// ReplaceAll swaps the entire card population in one generation step.
func (e *Engine) ReplaceAll(cards map[core.CardKey][]string) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.builder.ReplaceAll(cards)
	e.publishLocked(start)
}

// ImportSnapshot loads a universe exchange document, replacing the current
// population.
func (e *Engine) ImportSnapshot(doc universe.Doc) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.builder.Import(doc)
	e.publishLocked(start)
}

// ImportSnapshotFrom reads a framed snapshot (codec package format) and
// loads it.
func (e *Engine) ImportSnapshotFrom(r io.Reader) error {
	doc, err := codec.ReadSnapshot(r)
	if err != nil {
		return err
	}
	e.ImportSnapshot(doc)
	return nil
}

// ExportSnapshot frames the current universe onto w. The export counts as
// a background job against the resource controller, so concurrent exports
// are bounded and, when a write limit is configured, paced.
func (e *Engine) ExportSnapshot(ctx context.Context, w io.Writer, optFns ...codec.SnapshotOption) error {
	if err := e.rc.AcquireWorker(ctx); err != nil {
		return err
	}
	defer e.rc.ReleaseWorker()

	doc := e.snap.Load().Export()
	optFns = append(optFns, codec.WithController(e.rc))
	return codec.WriteSnapshot(ctx, w, doc, optFns...)
}

// publishLocked swaps in the new snapshot. The generation was already
// bumped by the builder; the atomic store is the moment readers see it.
func (e *Engine) publishLocked(start time.Time) {
	snap := e.builder.Publish()
	e.snap.Store(snap)
	e.metrics.RecordMutation(time.Since(start))
	e.logger.Debug("universe published", "generation", snap.Generation(), "cards", snap.Len())
}

// Filter returns the keys of the cards matching cfg, ascending. The result
// is shared with the cache; callers must not mutate it.
func (e *Engine) Filter(ctx context.Context, cfg zone.Config) ([]core.CardKey, error) {
	start := time.Now()
	snap := e.snap.Load()

	if err := cfg.Validate(); err != nil {
		e.metrics.RecordFilter(TierRejected, time.Since(start), err)
		return nil, err
	}

	key := cache.Key{Kind: kindFilter, Generation: snap.Generation(), Canonical: cfg.Canonical()}
	if v, ok := e.cacheGet(key); ok {
		e.metrics.RecordFilter(TierCached, time.Since(start), nil)
		return v.([]core.CardKey), nil
	}

	ids, tier, err := e.compute.Filter(ctx, snap, cfg)
	if err != nil {
		e.metrics.RecordFilter(string(tier), time.Since(start), err)
		return nil, err
	}

	// LocalIDs are assigned in key order at publish, so the ascending id
	// slice maps to ascending keys.
	keys := snap.Keys(ids)
	e.cacheSet(key, keys, int64(len(keys))*32)

	e.logger.Debug("filter computed",
		"tier", string(tier), "generation", snap.Generation(), "matched", len(keys))
	e.metrics.RecordFilter(string(tier), time.Since(start), nil)
	return keys, nil
}

// Grid filters the universe and partitions the result into the grid
// spanned by cfg's row/column/slice tags. The result is shared with the
// cache; callers must not mutate it.
func (e *Engine) Grid(ctx context.Context, cfg zone.Config) (*grid.Grid, error) {
	start := time.Now()
	snap := e.snap.Load()

	if err := cfg.Validate(); err != nil {
		e.metrics.RecordGrid(time.Since(start), err)
		return nil, err
	}

	key := cache.Key{Kind: kindGrid, Generation: snap.Generation(), Canonical: cfg.Canonical()}
	if v, ok := e.cacheGet(key); ok {
		e.metrics.RecordGrid(time.Since(start), nil)
		return v.(*grid.Grid), nil
	}

	ids, tier, err := e.compute.Filter(ctx, snap, cfg)
	if err != nil {
		e.metrics.RecordGrid(time.Since(start), err)
		return nil, err
	}

	g, err := grid.Partition(snap, ids, cfg, e.opts.maxCells)
	if err != nil {
		e.metrics.RecordGrid(time.Since(start), err)
		return nil, err
	}
	e.cacheSet(key, g, int64(g.TotalMemberships())*32)

	e.logger.Debug("grid computed",
		"tier", string(tier), "generation", snap.Generation(),
		"filtered", len(ids), "cells", g.CellCount())
	e.metrics.RecordGrid(time.Since(start), nil)
	return g, nil
}

// CacheStats reports operation-cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// CacheStats returns current cache counters.
func (e *Engine) CacheStats() CacheStats {
	hits, misses := e.cache.Stats()
	return CacheStats{Hits: hits, Misses: misses, Entries: e.cache.Len()}
}

// ClearCache drops every cached result. Generation-keyed entries can never
// go stale, so this is only ever needed to release memory.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// cacheGet absorbs any cache-layer fault; a panic falls through to a miss.
func (e *Engine) cacheGet(key cache.Key) (v any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("operation cache read failed", "error", r)
			v, ok = nil, false
		}
	}()
	v, ok = e.cache.Get(key)
	e.metrics.RecordCacheLookup(ok)
	return v, ok
}

// cacheSet absorbs any cache-layer fault; the computed result is still
// returned to the caller.
func (e *Engine) cacheSet(key cache.Key, v any, cost int64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("operation cache write failed", "error", r)
		}
	}()
	e.cache.Set(key, v, cost)
}
