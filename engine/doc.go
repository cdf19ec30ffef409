// Package engine computes filtered card sets for a zone configuration
// against an immutable universe snapshot.
//
// Filtering runs in three strictly ordered phases: intersection restriction
// (all tags required, applied rarest-first with early termination), union
// selection (at least one tag, evaluated only within the intersection
// result), and exclusion (always last).
//
// Three execution tiers implement the same contract and must produce
// identical results; the tier is chosen from the universe size and is a
// performance decision only:
//
//   - TierRegular: single-threaded scan of the card slice.
//   - TierParallel: chunked scan fanned out across CPUs.
//   - TierTurbo: bitwise operations over per-tag roaring bitmaps, rebuilt
//     lazily whenever the universe generation changes.
//
// The engine is a pure function of (snapshot, configuration); it has no
// side effects beyond populating its per-generation bitmap index.
package engine
