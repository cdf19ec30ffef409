package cardgrid

import (
	"github.com/multicardz/cardgrid/engine"
	"github.com/multicardz/cardgrid/grid"
	"github.com/multicardz/cardgrid/resource"
)

// DefaultCacheCapacity is the default operation-cache size in entries.
const DefaultCacheCapacity = 200

type options struct {
	logger        *Logger
	metrics       MetricsCollector
	cacheCapacity int
	shardedCache  bool
	maxCells      int
	engineOpts    engine.Options
	resourceCfg   resource.Config
}

func defaultOptions() options {
	return options{
		logger:        NoopLogger(),
		metrics:       NoopMetricsCollector{},
		cacheCapacity: DefaultCacheCapacity,
		maxCells:      grid.DefaultMaxCells,
	}
}

// Option configures engine construction.
type Option func(*options)

// WithLogger sets the structured logger. nil selects the no-op logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector. nil selects the no-op collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithCacheCapacity bounds the operation cache to n entries (default 200).
func WithCacheCapacity(n int) Option {
	return func(o *options) { o.cacheCapacity = n }
}

// WithShardedCache switches the operation cache to the 64-way sharded
// variant for facades queried from many goroutines at once.
func WithShardedCache() Option {
	return func(o *options) { o.shardedCache = true }
}

// WithCellLimit sets the safety ceiling on grid cells per request.
func WithCellLimit(n int) Option {
	return func(o *options) { o.maxCells = n }
}

// WithTierThresholds overrides the universe sizes at which the engine
// switches from the regular to the parallel and turbo tiers. Tier choice
// never changes results; this mostly serves tests and benchmarks.
func WithTierThresholds(regularMax, parallelMax int) Option {
	return func(o *options) {
		o.engineOpts.RegularMaxCards = regularMax
		o.engineOpts.ParallelMaxCards = parallelMax
	}
}

// WithMaxWorkers bounds the parallel tier's fan-out. Values above the
// available CPU count are clamped.
func WithMaxWorkers(n int) Option {
	return func(o *options) { o.engineOpts.MaxWorkers = n }
}

// WithResourceLimits attaches memory/concurrency/throughput limits for the
// bitmap index, the operation cache and snapshot export.
func WithResourceLimits(cfg resource.Config) Option {
	return func(o *options) { o.resourceCfg = cfg }
}
