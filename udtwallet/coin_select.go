package udtwallet

import (
	"fmt"
	"sort"

	"github.com/cellforge/udtforge/cell"
)

// GreedySelector picks candidates until their capacity covers the required
// amount.
type GreedySelector struct {
	// LargestFirst sorts the candidates by descending capacity before
	// picking, which spends as few cells as possible. Otherwise the
	// candidates are taken in the order given.
	LargestFirst bool
}

// A compile-time assertion to ensure GreedySelector meets the CoinSelector
// interface.
var _ CoinSelector = (*GreedySelector)(nil)

// SelectInputs returns the smallest prefix of the (optionally sorted)
// candidates that covers required.
func (g *GreedySelector) SelectInputs(candidates []*cell.LiveCell,
	required uint64) ([]*cell.LiveCell, error) {

	ordered := append([]*cell.LiveCell(nil), candidates...)
	if g.LargestFirst {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Output.Capacity >
				ordered[j].Output.Capacity
		})
	}

	var (
		total    uint64
		selected []*cell.LiveCell
	)
	for _, candidate := range ordered {
		if total >= required && len(selected) > 0 {
			break
		}

		sum, err := cell.Add(total, candidate.Output.Capacity)
		if err != nil {
			return nil, err
		}

		total = sum
		selected = append(selected, candidate)
	}

	if total < required || len(selected) == 0 {
		return nil, fmt.Errorf("%w: have %d shannons in %d cells, need "+
			"%d", ErrInsufficientCapacity, total, len(selected),
			required)
	}

	return selected, nil
}

// totalCapacity sums the capacity of the cells.
func totalCapacity(cells []*cell.LiveCell) (uint64, error) {
	var total uint64
	for _, c := range cells {
		var err error
		total, err = cell.Add(total, c.Output.Capacity)
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}
