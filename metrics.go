package cardgrid

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; the library itself never talks to a metrics backend.
type MetricsCollector interface {
	// RecordFilter is called after each filter computation (cache hits
	// included; a hit reports TierCached). tier names the execution
	// strategy used, duration the total time, err nil on success.
	RecordFilter(tier string, duration time.Duration, err error)

	// RecordGrid is called after each grid computation.
	RecordGrid(duration time.Duration, err error)

	// RecordCacheLookup is called for each operation-cache probe.
	RecordCacheLookup(hit bool)

	// RecordIndexRebuild is called after the bitmap index is rebuilt for
	// a new generation. cards is the universe size.
	RecordIndexRebuild(cards int, duration time.Duration)

	// RecordMutation is called after each universe mutation that
	// produced a new generation.
	RecordMutation(duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFilter(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordGrid(time.Duration, error)           {}
func (NoopMetricsCollector) RecordCacheLookup(bool)                    {}
func (NoopMetricsCollector) RecordIndexRebuild(int, time.Duration)     {}
func (NoopMetricsCollector) RecordMutation(time.Duration)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FilterCount      atomic.Int64
	FilterErrors     atomic.Int64
	FilterTotalNanos atomic.Int64
	GridCount        atomic.Int64
	GridErrors       atomic.Int64
	GridTotalNanos   atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	IndexRebuilds    atomic.Int64
	MutationCount    atomic.Int64
}

// RecordFilter implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFilter(_ string, duration time.Duration, err error) {
	b.FilterCount.Add(1)
	b.FilterTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FilterErrors.Add(1)
	}
}

// RecordGrid implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrid(duration time.Duration, err error) {
	b.GridCount.Add(1)
	b.GridTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GridErrors.Add(1)
	}
}

// RecordCacheLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordIndexRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndexRebuild(int, time.Duration) {
	b.IndexRebuilds.Add(1)
}

// RecordMutation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMutation(time.Duration) {
	b.MutationCount.Add(1)
}
