package bitmap

import (
	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/universe"
)

// Index holds one bitmap per tag for a single universe generation:
// bit i of tag t's bitmap is set iff the card with LocalID i bears t.
//
// An Index is immutable after Build and is discarded wholesale when the
// generation changes; it is never patched incrementally.
type Index struct {
	generation uint64
	tags       []*Bitmap // dense, indexed by TagID; nil for untagged ids
	all        *Bitmap   // every LocalID in the snapshot
	sizeBytes  uint64
}

// Build constructs the index from a snapshot in a single pass over cards.
func Build(snap *universe.Snapshot) *Index {
	ix := &Index{
		generation: snap.Generation(),
		tags:       make([]*Bitmap, snap.Tags().Len()),
		all:        New(),
	}
	cards := snap.Cards()
	for i := range cards {
		c := &cards[i]
		ix.all.Add(c.Local)
		for _, t := range c.Tags {
			bm := ix.tags[t]
			if bm == nil {
				bm = New()
				ix.tags[t] = bm
			}
			bm.Add(c.Local)
		}
	}
	ix.sizeBytes = ix.all.SizeBytes()
	for _, bm := range ix.tags {
		if bm != nil {
			ix.sizeBytes += bm.SizeBytes()
		}
	}
	return ix
}

// Generation returns the generation the index was built against.
func (ix *Index) Generation() uint64 { return ix.generation }

// Tag returns the bitmap for a tag id, or nil when no card bears it in
// this generation (including ids the snapshot has never seen).
func (ix *Index) Tag(id core.TagID) *Bitmap {
	if int(id) >= len(ix.tags) {
		return nil
	}
	return ix.tags[id]
}

// All returns the bitmap of every card in the generation.
// Callers must Clone before mutating.
func (ix *Index) All() *Bitmap { return ix.all }

// SizeBytes returns the approximate in-memory footprint of the index,
// used for resource accounting.
func (ix *Index) SizeBytes() uint64 { return ix.sizeBytes }
