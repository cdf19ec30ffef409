package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/internal/bitmap"
	"github.com/multicardz/cardgrid/resource"
	"github.com/multicardz/cardgrid/universe"
	"github.com/multicardz/cardgrid/zone"
)

// Tier names an execution strategy. All tiers are behavior-equivalent.
type Tier string

const (
	// TierRegular scans the card slice single-threaded.
	TierRegular Tier = "regular"
	// TierParallel fans the scan out over CPU-bound worker chunks.
	TierParallel Tier = "parallel"
	// TierTurbo runs bitwise set operations over the per-tag bitmap index.
	TierTurbo Tier = "turbo"
)

// Default tier thresholds, in cards.
const (
	DefaultRegularMaxCards  = 50_000
	DefaultParallelMaxCards = 100_000
)

// Options tunes tier selection and parallelism.
type Options struct {
	// RegularMaxCards is the largest universe handled by TierRegular.
	RegularMaxCards int
	// ParallelMaxCards is the largest universe handled by TierParallel;
	// anything bigger goes to TierTurbo.
	ParallelMaxCards int
	// MaxWorkers bounds the Parallel tier fan-out. Defaults to the
	// available CPU count; never exceeds it.
	MaxWorkers int
	// OnIndexRebuild, if set, is invoked after each bitmap index rebuild.
	OnIndexRebuild func(cards int, d time.Duration)
}

func (o Options) withDefaults() Options {
	if o.RegularMaxCards <= 0 {
		o.RegularMaxCards = DefaultRegularMaxCards
	}
	if o.ParallelMaxCards < o.RegularMaxCards {
		o.ParallelMaxCards = DefaultParallelMaxCards
		if o.ParallelMaxCards < o.RegularMaxCards {
			o.ParallelMaxCards = o.RegularMaxCards
		}
	}
	maxCPU := runtime.GOMAXPROCS(0)
	if o.MaxWorkers <= 0 || o.MaxWorkers > maxCPU {
		o.MaxWorkers = maxCPU
	}
	return o
}

// Engine evaluates zone configurations against universe snapshots.
// It is safe for concurrent use.
type Engine struct {
	opts Options
	rc   *resource.Controller

	buildMu sync.Mutex
	index   atomic.Pointer[bitmap.Index]
	charged atomic.Int64 // bytes charged to rc for the live index
}

// New creates an engine. rc may be nil to disable resource accounting.
func New(opts Options, rc *resource.Controller) *Engine {
	return &Engine{opts: opts.withDefaults(), rc: rc}
}

// TierFor returns the tier the engine would select for a universe of n cards.
func (e *Engine) TierFor(n int) Tier {
	switch {
	case n <= e.opts.RegularMaxCards:
		return TierRegular
	case n <= e.opts.ParallelMaxCards:
		return TierParallel
	default:
		return TierTurbo
	}
}

// Filter computes the filtered card set for cfg against snap, selecting the
// tier from the universe size. The returned LocalIDs are ascending.
func (e *Engine) Filter(ctx context.Context, snap *universe.Snapshot, cfg zone.Config) ([]core.LocalID, Tier, error) {
	tier := e.TierFor(snap.Len())
	ids, err := e.FilterWithTier(ctx, snap, cfg, tier)
	return ids, tier, err
}

// FilterWithTier computes the filtered card set using an explicit tier.
// Every tier returns the identical ascending LocalID slice for the same
// input; forcing a tier is useful for tests and benchmarks.
func (e *Engine) FilterWithTier(ctx context.Context, snap *universe.Snapshot, cfg zone.Config, tier Tier) ([]core.LocalID, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := compile(snap, cfg)
	if q.empty {
		return []core.LocalID{}, nil
	}

	switch tier {
	case TierParallel:
		return e.filterParallel(ctx, snap, q)
	case TierTurbo:
		ids, ok := e.filterTurbo(snap, q)
		if !ok {
			// Index memory was denied; the chunked scan is the
			// slower-but-correct fallback.
			return e.filterParallel(ctx, snap, q)
		}
		return ids, nil
	default:
		return e.filterRegular(snap, q), nil
	}
}

// query is a zone configuration resolved against a snapshot's frozen tag
// view: names are replaced by TagIDs and unknown tags are folded into
// their phase semantics at compile time.
type query struct {
	// inter is selectivity-ordered, rarest tag first.
	inter []core.TagID
	// union holds the known union tags; unionRequired distinguishes an
	// empty union zone (identity) from one whose tags all vanished
	// (matches nothing).
	union         []core.TagID
	unionRequired bool
	excl          []core.TagID
	// empty short-circuits the whole computation: some intersection tag
	// is unknown or unused, or the union zone cannot match.
	empty bool
}

func compile(snap *universe.Snapshot, cfg zone.Config) query {
	view := snap.Tags()
	var q query

	for _, name := range cfg.Intersection {
		id, ok := view.Lookup(name)
		if !ok || view.UsageCount(id) == 0 {
			// A required tag no card bears: the intersection is
			// empty, no scan needed.
			q.empty = true
			return q
		}
		q.inter = append(q.inter, id)
	}
	q.inter = view.BySelectivity(q.inter)

	if len(cfg.Union) > 0 {
		q.unionRequired = true
		for _, name := range cfg.Union {
			if id, ok := view.Lookup(name); ok {
				q.union = append(q.union, id)
			}
		}
		if len(q.union) == 0 {
			q.empty = true
			return q
		}
	}

	for _, name := range cfg.Exclusion {
		if id, ok := view.Lookup(name); ok {
			q.excl = append(q.excl, id)
		}
	}
	return q
}

// matches evaluates the three phases for one card. The per-card conjunction
// is order-independent, but the intersection tags are still probed
// rarest-first so mismatches fail as early as possible.
func (q *query) matches(c *universe.Card) bool {
	for _, id := range q.inter {
		if !c.HasTag(id) {
			return false
		}
	}
	if q.unionRequired {
		any := false
		for _, id := range q.union {
			if c.HasTag(id) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, id := range q.excl {
		if c.HasTag(id) {
			return false
		}
	}
	return true
}
