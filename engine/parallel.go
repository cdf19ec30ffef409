package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/multicardz/cardgrid/core"
	"github.com/multicardz/cardgrid/universe"
)

// filterParallel is the chunked scan tier. The card slice is split into one
// contiguous chunk per worker; each card's match is independent of every
// other card, so chunks share no state and the concatenated result equals
// the single-threaded scan for any chunking.
func (e *Engine) filterParallel(ctx context.Context, snap *universe.Snapshot, q query) ([]core.LocalID, error) {
	// Cancellation is cooperative and checked only at chunk granularity:
	// a chunk that has started runs to completion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cards := snap.Cards()
	workers := e.opts.MaxWorkers
	if workers > len(cards) {
		workers = len(cards)
	}
	if workers <= 1 {
		return e.filterRegular(snap, q), nil
	}

	chunkSize := (len(cards) + workers - 1) / workers
	results := make([][]core.LocalID, workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		hi := lo + chunkSize
		if hi > len(cards) {
			hi = len(cards)
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			part := make([]core.LocalID, 0, (hi-lo)/4)
			for i := lo; i < hi; i++ {
				if q.matches(&cards[i]) {
					part = append(part, cards[i].Local)
				}
			}
			results[w] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Chunks are contiguous and in order, so plain concatenation keeps
	// the result ascending.
	total := 0
	for _, part := range results {
		total += len(part)
	}
	out := make([]core.LocalID, 0, total)
	for _, part := range results {
		out = append(out, part...)
	}
	return out, nil
}
