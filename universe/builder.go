package universe

import (
	"sort"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/tag"
)

// Builder is the single-writer mutable state behind the universe. It is NOT
// safe for concurrent use; the owning engine serializes mutations and
// publishes immutable snapshots for readers.
//
// Every successful mutation bumps the generation counter as its final step.
type Builder struct {
	tags       *tag.Index
	cards      map[core.CardKey][]core.TagID // sorted tag ids per card
	generation uint64
}

// NewBuilder creates an empty universe builder around the given tag index.
// A nil index gets a fresh one.
func NewBuilder(ix *tag.Index) *Builder {
	if ix == nil {
		ix = tag.NewIndex()
	}
	return &Builder{
		tags:  ix,
		cards: make(map[core.CardKey][]core.TagID),
	}
}

// TagIndex returns the index the builder maintains usage counts in.
func (b *Builder) TagIndex() *tag.Index { return b.tags }

// Generation returns the current generation counter.
func (b *Builder) Generation() uint64 { return b.generation }

// Len returns the number of cards currently in the builder.
func (b *Builder) Len() int { return len(b.cards) }

// Put creates or replaces the card's tag set and adjusts usage counts by
// the delta between old and new tags. Returns true if anything changed.
func (b *Builder) Put(key core.CardKey, tagNames []string) bool {
	next := b.resolve(tagNames)
	prev, existed := b.cards[key]
	if existed && equalIDs(prev, next) {
		return false
	}

	if existed {
		for _, id := range prev {
			b.tags.DecUsage(id)
		}
	}
	for _, id := range next {
		b.tags.IncUsage(id)
	}
	b.cards[key] = next
	b.generation++
	return true
}

// Delete removes the card. Returns false if the key was unknown.
func (b *Builder) Delete(key core.CardKey) bool {
	prev, ok := b.cards[key]
	if !ok {
		return false
	}
	for _, id := range prev {
		b.tags.DecUsage(id)
	}
	delete(b.cards, key)
	b.generation++
	return true
}

// ReplaceAll swaps the entire card population in one generation step.
func (b *Builder) ReplaceAll(cards map[core.CardKey][]string) {
	for _, prev := range b.cards {
		for _, id := range prev {
			b.tags.DecUsage(id)
		}
	}
	b.cards = make(map[core.CardKey][]core.TagID, len(cards))
	for key, names := range cards {
		ids := b.resolve(names)
		for _, id := range ids {
			b.tags.IncUsage(id)
		}
		b.cards[key] = ids
	}
	b.generation++
}

// Import loads an exchange document, replacing the current population.
// The document's generation is advisory; the builder's own counter still
// moves strictly forward.
func (b *Builder) Import(doc Doc) {
	b.ReplaceAll(doc.Cards)
	if doc.Generation > b.generation {
		b.generation = doc.Generation
	}
}

// Publish freezes the current state into an immutable Snapshot. Cards are
// ordered by key before dense LocalIDs are assigned, so the id layout is
// deterministic for a given population. The mapping is rebuilt from scratch
// on every publish; ids are never patched incrementally.
func (b *Builder) Publish() *Snapshot {
	keys := make([]core.CardKey, 0, len(b.cards))
	for key := range b.cards {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	cards := make([]Card, len(keys))
	byKey := make(map[core.CardKey]core.LocalID, len(keys))
	for i, key := range keys {
		local := core.LocalID(i)
		cards[i] = Card{Key: key, Local: local, Tags: b.cards[key]}
		byKey[key] = local
	}

	return &Snapshot{
		generation: b.generation,
		cards:      cards,
		byKey:      byKey,
		tags:       b.tags.Freeze(),
	}
}

// resolve interns tag names and returns a sorted, deduplicated id slice.
func (b *Builder) resolve(tagNames []string) []core.TagID {
	if len(tagNames) == 0 {
		return nil
	}
	ids := make([]core.TagID, 0, len(tagNames))
	for _, name := range tagNames {
		ids = append(ids, b.tags.GetOrCreate(name))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	n := 0
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			ids[n] = id
			n++
		}
	}
	return ids[:n]
}

func equalIDs(a, b []core.TagID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
