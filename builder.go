// This file implements the fluent builder API for constructing engines.
// The builder is immutable - each method returns a new builder with the
// updated configuration, so partially configured builders can be shared
// safely.

package cardgrid

import (
	"github.com/multicardz/cardgrid/resource"
)

// NewBuilder starts a fluent engine configuration.
//
// Example:
//
//	eng := cardgrid.NewBuilder().
//	    CacheCapacity(500).
//	    CellLimit(2_000).
//	    Metrics(&cardgrid.BasicMetricsCollector{}).
//	    Build()
func NewBuilder() Builder {
	return Builder{}
}

// Builder is an immutable fluent builder for Engine instances.
type Builder struct {
	opts []Option
}

func (b Builder) with(opt Option) Builder {
	opts := make([]Option, len(b.opts), len(b.opts)+1)
	copy(opts, b.opts)
	return Builder{opts: append(opts, opt)}
}

// Logger sets the structured logger.
func (b Builder) Logger(l *Logger) Builder { return b.with(WithLogger(l)) }

// Metrics sets the metrics collector.
func (b Builder) Metrics(m MetricsCollector) Builder { return b.with(WithMetrics(m)) }

// CacheCapacity bounds the operation cache in entries.
func (b Builder) CacheCapacity(n int) Builder { return b.with(WithCacheCapacity(n)) }

// ShardedCache selects the 64-way sharded operation cache.
func (b Builder) ShardedCache() Builder { return b.with(WithShardedCache()) }

// CellLimit sets the grid cell safety ceiling.
func (b Builder) CellLimit(n int) Builder { return b.with(WithCellLimit(n)) }

// TierThresholds overrides the regular/parallel tier cutoffs.
func (b Builder) TierThresholds(regularMax, parallelMax int) Builder {
	return b.with(WithTierThresholds(regularMax, parallelMax))
}

// MaxWorkers bounds the parallel tier fan-out.
func (b Builder) MaxWorkers(n int) Builder { return b.with(WithMaxWorkers(n)) }

// ResourceLimits attaches resource limits.
func (b Builder) ResourceLimits(cfg resource.Config) Builder {
	return b.with(WithResourceLimits(cfg))
}

// Build constructs the engine.
func (b Builder) Build() *Engine {
	return New(b.opts...)
}
