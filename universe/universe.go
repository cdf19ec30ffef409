package universe

import (
	"sort"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/tag"
)

// Card is a single card inside a snapshot. Tags is sorted ascending by
// TagID so membership tests are binary searches.
type Card struct {
	Key   core.CardKey
	Local core.LocalID
	Tags  []core.TagID
}

// HasTag reports whether the card bears the tag.
func (c *Card) HasTag(id core.TagID) bool {
	return core.ContainsTag(c.Tags, id)
}

// Snapshot is an immutable view of the universe at one generation.
// Snapshots are safe to share across goroutines without locking.
type Snapshot struct {
	generation uint64
	cards      []Card // dense, indexed by LocalID
	byKey      map[core.CardKey]core.LocalID
	tags       *tag.View
}

// Generation returns the snapshot's generation counter.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Len returns the number of cards in the universe.
func (s *Snapshot) Len() int { return len(s.cards) }

// Cards returns the dense card slice, indexed by LocalID.
// Callers must not mutate it.
func (s *Snapshot) Cards() []Card { return s.cards }

// Card returns the card with the given LocalID.
func (s *Snapshot) Card(id core.LocalID) *Card { return &s.cards[id] }

// Lookup resolves a card key to its LocalID within this generation.
func (s *Snapshot) Lookup(key core.CardKey) (core.LocalID, bool) {
	id, ok := s.byKey[key]
	return id, ok
}

// KeyOf returns the card key for a LocalID.
func (s *Snapshot) KeyOf(id core.LocalID) core.CardKey { return s.cards[id].Key }

// Tags returns the frozen tag view captured at publish time.
func (s *Snapshot) Tags() *tag.View { return s.tags }

// Keys maps LocalIDs back to card keys, preserving order.
func (s *Snapshot) Keys(ids []core.LocalID) []core.CardKey {
	keys := make([]core.CardKey, len(ids))
	for i, id := range ids {
		keys[i] = s.cards[id].Key
	}
	return keys
}

// Export flattens the snapshot into the exchange document consumed by the
// persistence collaborator.
func (s *Snapshot) Export() Doc {
	doc := Doc{
		Generation: s.generation,
		Cards:      make(map[core.CardKey][]string, len(s.cards)),
	}
	for i := range s.cards {
		c := &s.cards[i]
		names := make([]string, len(c.Tags))
		for j, id := range c.Tags {
			names[j] = s.tags.Name(id)
		}
		sort.Strings(names)
		doc.Cards[c.Key] = names
	}
	return doc
}

// Doc is the boundary representation of a universe: card key → tag names,
// plus the generation the document was produced at. It carries no internal
// ids; LocalIDs and TagIDs are reassigned on import.
type Doc struct {
	Generation uint64                    `json:"generation"`
	Cards      map[core.CardKey][]string `json:"cards"`
}
