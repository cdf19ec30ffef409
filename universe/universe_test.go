package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multicardz/cardgrid/core"
)

func TestPutBumpsGenerationAndMaintainsCounts(t *testing.T) {
	b := NewBuilder(nil)
	require.Equal(t, uint64(0), b.Generation())

	require.True(t, b.Put("A", []string{"x", "y"}))
	require.True(t, b.Put("B", []string{"x"}))
	assert.Equal(t, uint64(2), b.Generation())

	ix := b.TagIndex()
	x, ok := ix.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 2, ix.UsageCount(x))

	// Replacing a card's tags adjusts counts by the delta.
	require.True(t, b.Put("A", []string{"y"}))
	assert.Equal(t, 1, ix.UsageCount(x))
	assert.Equal(t, uint64(3), b.Generation())

	// A no-op put does not create a new generation.
	require.False(t, b.Put("A", []string{"y"}))
	assert.Equal(t, uint64(3), b.Generation())
}

func TestPutDeduplicatesTagNames(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("A", []string{"x", "x", "y"})

	snap := b.Publish()
	id, ok := snap.Lookup("A")
	require.True(t, ok)
	assert.Len(t, snap.Card(id).Tags, 2)

	x, ok := snap.Tags().Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Tags().UsageCount(x))
}

func TestDeleteDecrementsAndTombstones(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("A", []string{"x"})
	require.True(t, b.Delete("A"))
	require.False(t, b.Delete("A"))

	ix := b.TagIndex()
	x, ok := ix.Lookup("x")
	require.True(t, ok, "tombstoned tag keeps its id")
	assert.Equal(t, 0, ix.UsageCount(x))
	assert.Equal(t, uint64(2), b.Generation())
}

func TestPublishAssignsDenseIDsInKeyOrder(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("C", []string{"z"})
	b.Put("A", []string{"x"})
	b.Put("B", []string{"y"})

	snap := b.Publish()
	require.Equal(t, 3, snap.Len())

	cards := snap.Cards()
	assert.Equal(t, core.CardKey("A"), cards[0].Key)
	assert.Equal(t, core.CardKey("B"), cards[1].Key)
	assert.Equal(t, core.CardKey("C"), cards[2].Key)
	for i, c := range cards {
		assert.Equal(t, core.LocalID(i), c.Local)
	}

	id, ok := snap.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, core.CardKey("B"), snap.KeyOf(id))
}

func TestLocalIDMappingIsRebuiltEachGeneration(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("B", []string{"x"})
	b.Put("C", []string{"x"})
	first := b.Publish()

	bID, ok := first.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, core.LocalID(0), bID)

	// Inserting a key that sorts before B shifts the dense layout; the
	// old snapshot is untouched.
	b.Put("A", []string{"x"})
	second := b.Publish()

	bID2, ok := second.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, core.LocalID(1), bID2)

	stillB, ok := first.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, core.LocalID(0), stillB)
	assert.Equal(t, 2, first.Len())
}

func TestSnapshotIsImmutableUnderLaterMutation(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("A", []string{"x"})
	snap := b.Publish()

	b.Put("B", []string{"y"})
	b.Delete("A")

	assert.Equal(t, 1, snap.Len())
	_, ok := snap.Lookup("B")
	assert.False(t, ok)

	x, ok := snap.Tags().Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Tags().UsageCount(x))
}

func TestReplaceAllSwapsPopulationInOneGeneration(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("A", []string{"x"})
	gen := b.Generation()

	b.ReplaceAll(map[core.CardKey][]string{
		"B": {"y"},
		"C": {"y", "z"},
	})
	assert.Equal(t, gen+1, b.Generation())

	snap := b.Publish()
	assert.Equal(t, 2, snap.Len())
	_, ok := snap.Lookup("A")
	assert.False(t, ok)

	y, ok := snap.Tags().Lookup("y")
	require.True(t, ok)
	assert.Equal(t, 2, snap.Tags().UsageCount(y))
	x, ok := snap.Tags().Lookup("x")
	require.True(t, ok, "replaced-away tag stays tombstoned")
	assert.Equal(t, 0, snap.Tags().UsageCount(x))
}

func TestExportImportRoundTrip(t *testing.T) {
	b := NewBuilder(nil)
	b.Put("A", []string{"x", "y"})
	b.Put("B", nil)
	doc := b.Publish().Export()

	assert.Equal(t, []string{"x", "y"}, doc.Cards["A"])
	assert.Empty(t, doc.Cards["B"])

	b2 := NewBuilder(nil)
	b2.Import(doc)
	snap := b2.Publish()
	require.Equal(t, 2, snap.Len())
	assert.GreaterOrEqual(t, snap.Generation(), doc.Generation)

	id, ok := snap.Lookup("A")
	require.True(t, ok)
	assert.Len(t, snap.Card(id).Tags, 2)
}
