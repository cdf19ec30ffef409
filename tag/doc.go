// Package tag implements the tag index: a stable two-way mapping between
// tag names and dense integer ids, with per-tag usage counts.
//
// TagIDs are dense and append-only: a name observed once keeps its id for
// the lifetime of the index, even after its usage count drops to zero
// (the entry is tombstoned, never removed). This keeps ids safe to embed
// in snapshots and bitmap indexes across generations.
//
// Usage counts are maintained by the universe builder on every card
// mutation; the set-operations engine only reads them, to derive the
// selectivity ordering (rarest tag first) for intersection chains.
package tag
