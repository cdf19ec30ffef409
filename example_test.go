package cardgrid_test

import (
	"context"
	"fmt"

	cardgrid "github.com/multicardz/cardgrid"
	"github.com/multicardz/cardgrid/zone"
)

func Example() {
	e := cardgrid.New()

	e.PutCard("bug-101", "open", "backend", "urgent")
	e.PutCard("bug-102", "open", "frontend")
	e.PutCard("bug-103", "closed", "backend")
	e.PutCard("bug-104", "open", "backend")

	ctx := context.Background()

	// Cards carrying every intersection tag, minus the exclusions.
	keys, err := e.Filter(ctx, zone.Config{
		Intersection: []string{"open", "backend"},
		Exclusion:    []string{"urgent"},
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(keys)

	// Partition the open cards into a component-by-status grid.
	g, err := e.Grid(ctx, zone.Config{
		Intersection: []string{"open"},
		Rows:         []string{"backend", "frontend"},
		Columns:      []string{"urgent"},
	})
	if err != nil {
		panic(err)
	}
	for _, cell := range g.Cells() {
		fmt.Println(cell.Coord, len(cell.Cards))
	}

	// Output:
	// [bug-104]
	// (backend, urgent) 1
	// (frontend, urgent) 0
}
