// Package grid partitions a filtered card set into an N-dimensional grid of
// cells spanned by row, column and slice tags, and tracks multiplicity:
// a card whose tags satisfy several coordinate combinations appears in
// every matching cell, never deduplicated away.
package grid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/universe"
	"github.com/multicardz/cardgrid/zone"
)

// DefaultMaxCells is the default safety ceiling on the number of grid
// cells; a configuration whose axes would span more is rejected rather
// than silently truncated.
const DefaultMaxCells = 10_000

// Coordinate locates one cell: one tag name per active axis, in axis order
// (row, column, slices…).
type Coordinate []string

// Key returns a stable string form of the coordinate.
func (c Coordinate) Key() string {
	return strings.Join(c, "\x1f")
}

// String renders the coordinate for logs and errors.
func (c Coordinate) String() string {
	return "(" + strings.Join(c, ", ") + ")"
}

// Axis is one active grid dimension with its spanning tags in cell order.
type Axis struct {
	Role zone.Role
	Tags []string
}

// Cell is one grid cell: its coordinate and the cards whose tags satisfy
// the conjunction of every coordinate tag, restricted to the filtered set.
type Cell struct {
	Coord Coordinate
	Cards []core.CardKey
}

// Grid is the partitioned result. Cells are materialized for every
// coordinate combination, empty ones included, in row-major axis order.
type Grid struct {
	Axes  []Axis
	cells map[string]*Cell
	order []*Cell

	// Multiplicity maps each card to every coordinate it appears at, in
	// row-major order. Cards matching no cell are absent.
	Multiplicity map[core.CardKey][]Coordinate
}

// Cells returns every cell in row-major order.
func (g *Grid) Cells() []*Cell { return g.order }

// Cell returns the cell at the given coordinate.
func (g *Grid) Cell(coord ...string) (*Cell, bool) {
	c, ok := g.cells[Coordinate(coord).Key()]
	return c, ok
}

// CellCount returns the number of materialized cells.
func (g *Grid) CellCount() int { return len(g.order) }

// TotalMemberships returns the sum of cell sizes. When any card has
// multiplicity above one this exceeds the filtered set size.
func (g *Grid) TotalMemberships() int {
	total := 0
	for _, c := range g.order {
		total += len(c.Cards)
	}
	return total
}

// OverflowError reports a configuration whose axes span more cells than
// the configured ceiling.
type OverflowError struct {
	Cells int
	Limit int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("grid: %d cells exceed the configured ceiling of %d", e.Cells, e.Limit)
}

// Partition builds the grid for the already-filtered cards.
//
// The filtered slice is walked exactly once: for each card the matching
// tags are collected per axis and the card is appended to the cartesian
// product of those matches, so the cost is O(|filtered| x axes) plus the
// size of the output, never O(|filtered| x cells).
func Partition(snap *universe.Snapshot, filtered []core.LocalID, cfg zone.Config, maxCells int) (*Grid, error) {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}

	axes := activeAxes(cfg)

	// The product is checked axis by axis so an absurd configuration trips
	// the ceiling before the count can overflow int.
	cells := 1
	for _, ax := range axes {
		if cells > maxCells/len(ax.Tags) {
			return nil, &OverflowError{Cells: cells * len(ax.Tags), Limit: maxCells}
		}
		cells *= len(ax.Tags)
	}

	g := &Grid{
		Axes:         axes,
		cells:        make(map[string]*Cell, cells),
		order:        make([]*Cell, 0, cells),
		Multiplicity: make(map[core.CardKey][]Coordinate),
	}
	g.materialize(axes, Coordinate{})

	// Resolve axis tags against the snapshot once. An unknown tag keeps
	// its coordinate (the consumer renders the full grid) but matches no
	// cards, mirroring the engine's empty-match semantics.
	view := snap.Tags()
	resolved := make([][]core.TagID, len(axes))
	for i, ax := range axes {
		ids := make([]core.TagID, len(ax.Tags))
		for j, name := range ax.Tags {
			if id, ok := view.Lookup(name); ok {
				ids[j] = id
			} else {
				ids[j] = core.MaxTagID
			}
		}
		resolved[i] = ids
	}

	matched := make([][]int, len(axes))
	for _, local := range filtered {
		card := snap.Card(local)

		full := true
		for i := range axes {
			matched[i] = matched[i][:0]
			for j, id := range resolved[i] {
				if id != core.MaxTagID && card.HasTag(id) {
					matched[i] = append(matched[i], j)
				}
			}
			if len(matched[i]) == 0 {
				full = false
				break
			}
		}
		if !full {
			// No coordinate on some axis: the card appears in zero
			// cells and stays out of the multiplicity map.
			continue
		}
		g.assign(card.Key, axes, matched, make(Coordinate, 0, len(axes)))
	}

	return g, nil
}

// activeAxes drops empty dimensions: an axis without tags contributes no
// partitioning and collapses to the implicit single coordinate.
func activeAxes(cfg zone.Config) []Axis {
	var axes []Axis
	if tags := sortedUnique(cfg.Rows); len(tags) > 0 {
		axes = append(axes, Axis{Role: zone.RoleRow, Tags: tags})
	}
	if tags := sortedUnique(cfg.Columns); len(tags) > 0 {
		axes = append(axes, Axis{Role: zone.RoleColumn, Tags: tags})
	}
	for _, s := range cfg.Slices {
		if tags := sortedUnique(s); len(tags) > 0 {
			axes = append(axes, Axis{Role: zone.RoleSlice, Tags: tags})
		}
	}
	return axes
}

// materialize pre-creates every cell in row-major order. With no active
// axes this creates the single implicit cell at the empty coordinate.
func (g *Grid) materialize(axes []Axis, prefix Coordinate) {
	if len(axes) == 0 {
		coord := make(Coordinate, len(prefix))
		copy(coord, prefix)
		cell := &Cell{Coord: coord}
		g.cells[coord.Key()] = cell
		g.order = append(g.order, cell)
		return
	}
	for _, t := range axes[0].Tags {
		g.materialize(axes[1:], append(prefix, t))
	}
}

// assign appends the card to every cell in the cartesian product of its
// per-axis matches, recording each coordinate in the multiplicity map.
func (g *Grid) assign(key core.CardKey, axes []Axis, matched [][]int, prefix Coordinate) {
	depth := len(prefix)
	if depth == len(axes) {
		cell := g.cells[prefix.Key()]
		cell.Cards = append(cell.Cards, key)
		coord := make(Coordinate, len(prefix))
		copy(coord, prefix)
		g.Multiplicity[key] = append(g.Multiplicity[key], coord)
		return
	}
	for _, j := range matched[depth] {
		g.assign(key, axes, matched, append(prefix, axes[depth].Tags[j]))
	}
}

func sortedUnique(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	sort.Strings(out)
	n := 0
	for i, t := range out {
		if i == 0 || t != out[i-1] {
			out[n] = t
			n++
		}
	}
	return out[:n]
}
