package tag

import (
	"sort"
	"sync"

	"github.com/multicardz/cardgrid/core"
)

// Index maps tag names to dense TagIDs and tracks per-tag usage counts.
// It is safe for concurrent use; in practice all writes funnel through the
// single-writer universe builder.
type Index struct {
	mu     sync.RWMutex
	ids    map[string]core.TagID
	names  []string // dense, indexed by TagID
	counts []uint32 // dense, indexed by TagID
}

// NewIndex creates an empty tag index.
func NewIndex() *Index {
	return &Index{ids: make(map[string]core.TagID)}
}

// GetOrCreate returns the id for name, assigning a new dense id on first use.
func (ix *Index) GetOrCreate(name string) core.TagID {
	ix.mu.RLock()
	id, ok := ix.ids[name]
	ix.mu.RUnlock()
	if ok {
		return id
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if id, ok := ix.ids[name]; ok {
		return id
	}
	id = core.TagID(len(ix.names))
	ix.ids[name] = id
	ix.names = append(ix.names, name)
	ix.counts = append(ix.counts, 0)
	return id
}

// Lookup returns the id for name. The second result is false for a name the
// index has never seen; callers treat that as an empty match, not an error.
func (ix *Index) Lookup(name string) (core.TagID, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.ids[name]
	return id, ok
}

// Name returns the name for a known id.
func (ix *Index) Name(id core.TagID) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if int(id) >= len(ix.names) {
		return ""
	}
	return ix.names[id]
}

// UsageCount returns the number of cards currently bearing the tag.
// Unknown ids report zero.
func (ix *Index) UsageCount(id core.TagID) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if int(id) >= len(ix.counts) {
		return 0
	}
	return int(ix.counts[id])
}

// Len returns the number of tag names ever observed, tombstones included.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.names)
}

// IncUsage bumps the usage count for id.
func (ix *Index) IncUsage(id core.TagID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if int(id) < len(ix.counts) {
		ix.counts[id]++
	}
}

// DecUsage drops the usage count for id. A count that reaches zero leaves
// the entry tombstoned: the id stays valid and the name stays reserved.
func (ix *Index) DecUsage(id core.TagID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if int(id) < len(ix.counts) && ix.counts[id] > 0 {
		ix.counts[id]--
	}
}

// Freeze captures an immutable view of the index for a universe snapshot.
func (ix *Index) Freeze() *View {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make(map[string]core.TagID, len(ix.ids))
	for name, id := range ix.ids {
		ids[name] = id
	}
	counts := make([]uint32, len(ix.counts))
	copy(counts, ix.counts)
	names := make([]string, len(ix.names))
	copy(names, ix.names)

	return &View{ids: ids, names: names, counts: counts}
}

// Reset discards every mapping, including tombstones. Only safe when no
// snapshot or bitmap index referencing the old ids is still alive.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ids = make(map[string]core.TagID)
	ix.names = nil
	ix.counts = nil
}

// View is a frozen, read-only copy of the index taken at snapshot publish
// time. Views are immutable and safe to share across goroutines without
// locking.
type View struct {
	ids    map[string]core.TagID
	names  []string
	counts []uint32
}

// Lookup returns the id for name at freeze time.
func (v *View) Lookup(name string) (core.TagID, bool) {
	id, ok := v.ids[name]
	return id, ok
}

// Name returns the name for a known id.
func (v *View) Name(id core.TagID) string {
	if int(id) >= len(v.names) {
		return ""
	}
	return v.names[id]
}

// UsageCount returns the frozen usage count for id.
func (v *View) UsageCount(id core.TagID) int {
	if int(id) >= len(v.counts) {
		return 0
	}
	return int(v.counts[id])
}

// Len returns the number of ids in the view.
func (v *View) Len() int { return len(v.names) }

// BySelectivity returns ids sorted ascending by usage count, so the most
// restrictive tag comes first. Ties break on id for determinism.
func (v *View) BySelectivity(ids []core.TagID) []core.TagID {
	out := make([]core.TagID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool {
		ci, cj := v.UsageCount(out[i]), v.UsageCount(out[j])
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
