package engine

import (
	"time"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/internal/bitmap"
	"github.com/multicardz/cardgrid/universe"
)

// filterTurbo runs the three phases as bitwise operations over the per-tag
// bitmap index. Returns ok=false when the index could not be built within
// the configured memory budget; the caller falls back to the scan tiers.
func (e *Engine) filterTurbo(snap *universe.Snapshot, q query) ([]core.LocalID, bool) {
	idx, ok := e.bitmapIndex(snap)
	if !ok {
		return nil, false
	}

	// Phase 1: AND chain anchored on the rarest tag's bitmap. compile
	// already ordered q.inter by selectivity, so inter[0] is the anchor.
	var acc *bitmap.Bitmap
	if len(q.inter) == 0 {
		acc = idx.All().Clone()
	} else {
		anchor := idx.Tag(q.inter[0])
		if anchor == nil {
			return []core.LocalID{}, true
		}
		acc = anchor.Clone()
		for _, id := range q.inter[1:] {
			bm := idx.Tag(id)
			if bm == nil {
				return []core.LocalID{}, true
			}
			acc.And(bm)
			if acc.IsEmpty() {
				return []core.LocalID{}, true
			}
		}
	}

	// Phase 2: OR the union bitmaps, then AND against the phase-1 result.
	if q.unionRequired {
		u := bitmap.New()
		for _, id := range q.union {
			if bm := idx.Tag(id); bm != nil {
				u.Or(bm)
			}
		}
		acc.And(u)
	}

	// Phase 3: AND-NOT, always last.
	for _, id := range q.excl {
		if bm := idx.Tag(id); bm != nil {
			acc.AndNot(bm)
		}
	}

	return acc.ToLocalIDs(), true
}

// bitmapIndex returns the index for snap's generation, building it lazily
// on first Turbo access and discarding any index from an older generation.
func (e *Engine) bitmapIndex(snap *universe.Snapshot) (*bitmap.Index, bool) {
	if idx := e.index.Load(); idx != nil && idx.Generation() == snap.Generation() {
		return idx, true
	}

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	// Another request may have rebuilt while we waited.
	if idx := e.index.Load(); idx != nil && idx.Generation() == snap.Generation() {
		return idx, true
	}

	start := time.Now()
	idx := bitmap.Build(snap)

	cost := int64(idx.SizeBytes())
	if old := e.charged.Swap(0); old > 0 {
		e.rc.ReleaseMemory(old)
	}
	if !e.rc.TryAcquireMemory(cost) {
		e.index.Store(nil)
		return nil, false
	}
	e.charged.Store(cost)
	e.index.Store(idx)

	if e.opts.OnIndexRebuild != nil {
		e.opts.OnIndexRebuild(snap.Len(), time.Since(start))
	}
	return idx, true
}
