package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lee-tech/locations/internal/models"
)

// ancestorWalker climbs from the candidate leaves to the hierarchy roots,
// one parent generation per round, resolving per-level names as it goes.
// It never consults a materialized ancestor path: parent links are the only
// source of truth, so stale or missing path data cannot corrupt the result.
type ancestorWalker struct {
	store  LocationStore
	logger *zap.Logger
}

func newAncestorWalker(store LocationStore, logger *zap.Logger) *ancestorWalker {
	return &ancestorWalker{store: store, logger: logger}
}

// walk resolves name rows for the candidate set and all of its ancestors.
// Each round issues one name query and one parent query over the current
// frontier. Every identifier is queried at most once: the accumulator
// deduplicates by ID with first occurrence winning, and already-visited
// identifiers are dropped from the next frontier. Rounds are capped at
// maxRounds; exceeding the cap means the parent graph is deeper than the
// configured hierarchy allows and is reported as a cycle, never truncated.
func (w *ancestorWalker) walk(ids []uint64, levels []string, restrict bool, maxRounds int) ([]*models.LocationRow, error) {
	frontier := dedupIDs(ids)
	visited := make(map[uint64]struct{}, len(frontier))
	accumulated := make(map[uint64]struct{})
	var rows []*models.LocationRow

	rounds := 0
	for len(frontier) > 0 {
		rounds++
		if rounds > maxRounds {
			return nil, fmt.Errorf("%w: %d rounds over %d candidates", ErrHierarchyCycle, rounds, len(ids))
		}
		for _, id := range frontier {
			visited[id] = struct{}{}
		}

		resolved, err := w.store.ResolveNames(frontier, levels, restrict)
		if err != nil {
			return nil, err
		}
		for _, row := range resolved {
			if _, ok := accumulated[row.ID]; ok {
				continue
			}
			accumulated[row.ID] = struct{}{}
			rows = append(rows, row)
		}

		parents, err := w.store.DistinctParents(frontier)
		if err != nil {
			return nil, err
		}
		next := frontier[:0]
		for _, parent := range dedupIDs(parents) {
			if _, ok := visited[parent]; ok {
				continue
			}
			next = append(next, parent)
		}
		frontier = next
	}

	w.logger.Debug("ancestor walk complete",
		zap.Int("rounds", rounds),
		zap.Int("candidates", len(ids)),
		zap.Int("rows", len(rows)))
	return rows, nil
}
