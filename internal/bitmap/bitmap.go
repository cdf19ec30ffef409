// Package bitmap wraps compressed roaring bitmaps over card LocalIDs and
// builds the per-tag bitmap index behind the Turbo execution tier.
package bitmap

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/multicardz/cardgrid/core"
)

// Bitmap is a 32-bit roaring bitmap over card LocalIDs.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New creates an empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Add adds a LocalID to the bitmap.
func (b *Bitmap) Add(id core.LocalID) {
	b.rb.Add(uint32(id))
}

// Contains checks if a LocalID is in the bitmap.
func (b *Bitmap) Contains(id core.LocalID) bool {
	return b.rb.Contains(uint32(id))
}

// IsEmpty returns true if the bitmap is empty.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Cardinality returns the number of set bits.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Clone returns a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// And intersects the bitmap with other in place.
func (b *Bitmap) And(other *Bitmap) {
	b.rb.And(other.rb)
}

// Or unions the bitmap with other in place.
func (b *Bitmap) Or(other *Bitmap) {
	b.rb.Or(other.rb)
}

// AndNot removes other's members from the bitmap in place.
func (b *Bitmap) AndNot(other *Bitmap) {
	b.rb.AndNot(other.rb)
}

// Iterator yields the LocalIDs in ascending order.
func (b *Bitmap) Iterator() iter.Seq[core.LocalID] {
	return func(yield func(core.LocalID) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(core.LocalID(it.Next())) {
				return
			}
		}
	}
}

// ToLocalIDs materializes the bitmap as an ascending LocalID slice.
func (b *Bitmap) ToLocalIDs() []core.LocalID {
	out := make([]core.LocalID, 0, b.rb.GetCardinality())
	it := b.rb.Iterator()
	for it.HasNext() {
		out = append(out, core.LocalID(it.Next()))
	}
	return out
}

// SizeBytes returns the approximate in-memory size of the bitmap.
func (b *Bitmap) SizeBytes() uint64 {
	return b.rb.GetSizeInBytes()
}
