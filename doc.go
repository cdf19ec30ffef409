// Package cardgrid is the set-operations and dimensional-partitioning core
// of multicardz: it turns a universe of tagged cards plus a zone
// configuration into a filtered card set and an N-dimensional grid of card
// subsets with a multiplicity map.
//
// # Quick Start
//
//	eng := cardgrid.New()
//	eng.PutCard("A", "x", "y")
//	eng.PutCard("B", "x")
//	eng.PutCard("C", "y", "z")
//
//	// All cards carrying x:
//	keys, _ := eng.Filter(ctx, zone.Config{Intersection: []string{"x"}})
//
//	// Rows spanned by x, columns by y and z:
//	g, _ := eng.Grid(ctx, zone.Config{Rows: []string{"x"}, Columns: []string{"y", "z"}})
//	cell, _ := g.Cell("x", "y")
//
// # Semantics
//
// Filtering runs in three strictly ordered phases: intersection (all tags
// required), union (at least one, within the intersection result), and
// exclusion (last). Empty zones are identities: with all three empty the
// full universe comes back. A tag name nobody bears contributes an empty
// match, never an error.
//
// Three execution tiers (regular scan, parallel chunked scan, roaring
// bitmap index) implement the same contract and are selected purely by
// universe size; results are identical across tiers.
//
// # Caching and generations
//
// Results are memoized in an LRU keyed by (universe generation, canonical
// configuration). Every mutation bumps the generation as its last step, so
// stale entries become unreachable immediately: invalidation is a pure
// function of "did the universe change", never of wall-clock time.
package cardgrid
