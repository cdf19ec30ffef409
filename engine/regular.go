package engine

import (
	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/universe"
)

// filterRegular is the single-threaded scan tier. Cards are visited in
// LocalID order, so the result is ascending by construction.
func (e *Engine) filterRegular(snap *universe.Snapshot, q query) []core.LocalID {
	cards := snap.Cards()
	out := make([]core.LocalID, 0, len(cards)/4)
	for i := range cards {
		if q.matches(&cards[i]) {
			out = append(out, cards[i].Local)
		}
	}
	return out
}
