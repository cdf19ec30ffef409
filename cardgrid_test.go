package cardgrid

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multicardz/cardgrid/codec"
	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/zone"
)

func workedExample(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	e.PutCard("A", "x", "y")
	e.PutCard("B", "x")
	e.PutCard("C", "y", "z")
	e.PutCard("D", "z")
	e.PutCard("E")
	return e
}

func TestFilterWorkedExample(t *testing.T) {
	e := workedExample(t)
	ctx := context.Background()

	keys, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []core.CardKey{"A", "B"}, keys)

	// Union evaluated within the intersection-restricted universe.
	keys, err = e.Filter(ctx, zone.Config{Intersection: []string{"x"}, Union: []string{"z"}})
	require.NoError(t, err)
	assert.Empty(t, keys)

	// All zones empty: the full universe.
	keys, err = e.Filter(ctx, zone.Config{})
	require.NoError(t, err)
	assert.Len(t, keys, 5)
}

func TestGridWorkedExample(t *testing.T) {
	e := workedExample(t)

	g, err := e.Grid(context.Background(), zone.Config{
		Rows:    []string{"x"},
		Columns: []string{"y", "z"},
	})
	require.NoError(t, err)

	xy, ok := g.Cell("x", "y")
	require.True(t, ok)
	assert.Equal(t, []core.CardKey{"A"}, xy.Cards)

	xz, ok := g.Cell("x", "z")
	require.True(t, ok)
	assert.Empty(t, xz.Cards)

	assert.Len(t, g.Multiplicity["A"], 1)
}

func TestSecondIdenticalRequestServedFromCache(t *testing.T) {
	e := workedExample(t)
	ctx := context.Background()
	cfg := zone.Config{Intersection: []string{"x"}}

	first, err := e.Filter(ctx, cfg)
	require.NoError(t, err)

	// Same configuration with a different tag order: same cache entry.
	again, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	stats := e.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCanonicalizationSharesCacheEntries(t *testing.T) {
	e := workedExample(t)
	ctx := context.Background()

	_, err := e.Filter(ctx, zone.Config{Union: []string{"x", "z"}})
	require.NoError(t, err)
	_, err = e.Filter(ctx, zone.Config{Union: []string{"z", "x"}})
	require.NoError(t, err)

	stats := e.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

// Mutation bumps the generation, so a previously cached configuration must
// recompute rather than return the pre-mutation result.
func TestMutationInvalidatesCachedResults(t *testing.T) {
	e := workedExample(t)
	ctx := context.Background()
	cfg := zone.Config{Intersection: []string{"x"}}

	before, err := e.Filter(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []core.CardKey{"A", "B"}, before)
	gen := e.Generation()

	require.True(t, e.PutCard("F", "x"))
	assert.Greater(t, e.Generation(), gen)

	after, err := e.Filter(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []core.CardKey{"A", "B", "F"}, after)

	// Deletion invalidates the same way.
	require.True(t, e.DeleteCard("F"))
	again, err := e.Filter(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, before, again)
}

func TestNoOpMutationKeepsGenerationAndCache(t *testing.T) {
	e := workedExample(t)
	ctx := context.Background()

	_, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	gen := e.Generation()

	assert.False(t, e.PutCard("A", "x", "y"))
	assert.Equal(t, gen, e.Generation())

	_, err = e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.CacheStats().Hits)
}

func TestAmbiguousZoneAssignment(t *testing.T) {
	e := workedExample(t)
	_, err := e.Filter(context.Background(), zone.Config{
		Intersection: []string{"x"},
		Exclusion:    []string{"x"},
	})
	require.Error(t, err)
	assert.True(t, IsAmbiguousZone(err))
	assert.False(t, IsDimensionOverflow(err))
}

func TestDimensionOverflowSurfaced(t *testing.T) {
	e := workedExample(t, WithCellLimit(1))
	_, err := e.Grid(context.Background(), zone.Config{
		Rows:    []string{"x", "y"},
		Columns: []string{"z"},
	})
	require.Error(t, err)
	assert.True(t, IsDimensionOverflow(err))
	assert.False(t, IsAmbiguousZone(err))
}

func TestTagUsage(t *testing.T) {
	e := workedExample(t)
	assert.Equal(t, 2, e.TagUsage("x"))
	assert.Equal(t, 2, e.TagUsage("y"))
	assert.Equal(t, 0, e.TagUsage("ghost"))

	e.DeleteCard("B")
	assert.Equal(t, 1, e.TagUsage("x"))
}

func TestReplaceAll(t *testing.T) {
	e := workedExample(t)
	e.ReplaceAll(map[core.CardKey][]string{
		"P": {"q"},
		"Q": {"q", "r"},
	})
	assert.Equal(t, 2, e.Len())

	keys, err := e.Filter(context.Background(), zone.Config{Intersection: []string{"q"}})
	require.NoError(t, err)
	assert.Equal(t, []core.CardKey{"P", "Q"}, keys)
}

func TestExportImportRoundTrip(t *testing.T) {
	e := workedExample(t)

	var buf bytes.Buffer
	require.NoError(t, e.ExportSnapshot(context.Background(), &buf,
		codec.WithCompression(codec.CompressionLZ4)))

	restored := New()
	require.NoError(t, restored.ImportSnapshotFrom(&buf))
	assert.Equal(t, 5, restored.Len())

	keys, err := restored.Filter(context.Background(), zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []core.CardKey{"A", "B"}, keys)
}

func TestMetricsCollected(t *testing.T) {
	m := &BasicMetricsCollector{}
	e := workedExample(t, WithMetrics(m))
	ctx := context.Background()

	_, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	_, err = e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
	require.NoError(t, err)
	_, err = e.Grid(ctx, zone.Config{Rows: []string{"x"}})
	require.NoError(t, err)

	assert.Equal(t, int64(2), m.FilterCount.Load())
	assert.Equal(t, int64(1), m.GridCount.Load())
	assert.Equal(t, int64(1), m.CacheHits.Load())
	assert.Equal(t, int64(5), m.MutationCount.Load())
}

// tierRecorder captures the tier names reported to RecordFilter.
type tierRecorder struct {
	NoopMetricsCollector
	tiers []string
}

func (r *tierRecorder) RecordFilter(tier string, _ time.Duration, _ error) {
	r.tiers = append(r.tiers, tier)
}

func TestFilterTierReportedToMetrics(t *testing.T) {
	rec := &tierRecorder{}
	e := workedExample(t, WithMetrics(rec))
	ctx := context.Background()

	_, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}, Union: []string{"x"}})
	require.Error(t, err)

	cfg := zone.Config{Intersection: []string{"x"}}
	_, err = e.Filter(ctx, cfg)
	require.NoError(t, err)
	_, err = e.Filter(ctx, cfg)
	require.NoError(t, err)

	require.Len(t, rec.tiers, 3)
	assert.Equal(t, TierRejected, rec.tiers[0])
	assert.Equal(t, "regular", rec.tiers[1])
	assert.Equal(t, TierCached, rec.tiers[2])
}

func TestClearCache(t *testing.T) {
	e := workedExample(t)
	_, err := e.Filter(context.Background(), zone.Config{})
	require.NoError(t, err)
	require.Equal(t, 1, e.CacheStats().Entries)

	e.ClearCache()
	assert.Equal(t, 0, e.CacheStats().Entries)
}

func TestConcurrentReadersWithWriter(t *testing.T) {
	e := workedExample(t, WithShardedCache())
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				keys, err := e.Filter(ctx, zone.Config{Intersection: []string{"x"}})
				assert.NoError(t, err)
				// Readers see some complete generation: either
				// the original {A,B} or one with F added.
				assert.GreaterOrEqual(t, len(keys), 2)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			e.PutCard("F", "x")
			e.DeleteCard("F")
		}
	}()

	wg.Wait()
}

func TestBuilderFluentConfiguration(t *testing.T) {
	base := NewBuilder().CacheCapacity(10)

	// The builder is immutable: deriving two engines from the same base
	// must not leak configuration between them.
	a := base.CellLimit(1).Build()
	b := base.Build()

	_, err := a.Grid(context.Background(), zone.Config{Rows: []string{"x", "y"}})
	assert.True(t, IsDimensionOverflow(err))

	b.PutCard("A", "x")
	_, err = b.Grid(context.Background(), zone.Config{Rows: []string{"x", "y"}})
	assert.NoError(t, err)
}
