// Package universe holds the card universe: every card in a scope together
// with its tag set, versioned by a monotonically increasing generation
// counter.
//
// The universe follows copy-on-write snapshot semantics. All mutation goes
// through a Builder owned by a single writer; Publish freezes the current
// state into an immutable Snapshot with dense LocalIDs assigned from
// scratch. Readers work exclusively against snapshots and never observe a
// partially applied mutation.
//
// The generation counter is bumped as the last step of every mutation and
// is the sole basis for cache validity downstream, never wall-clock time.
package universe
