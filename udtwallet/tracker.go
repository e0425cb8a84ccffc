package udtwallet

import (
	"bytes"
	"sort"

	"github.com/cellforge/udtforge/cell"
	"golang.org/x/exp/maps"
)

// ReservedSet is the set of cells that must never be offered as plain
// capacity even though the ledger still reports them live: deployed code,
// token cells waiting to be transferred, and inputs of transactions that
// were submitted but not yet committed.
//
// A ReservedSet is an immutable value. With returns a new set and leaves the
// receiver untouched, so a workflow step hands the caller the set it should
// use for the next step.
type ReservedSet struct {
	entries map[cell.OutPoint]cell.CellInput
}

// NewReservedSet returns a set holding the given inputs.
func NewReservedSet(inputs ...cell.CellInput) ReservedSet {
	return ReservedSet{}.With(inputs...)
}

// With returns a copy of the set extended with the given inputs.
func (r ReservedSet) With(inputs ...cell.CellInput) ReservedSet {
	entries := make(
		map[cell.OutPoint]cell.CellInput, len(r.entries)+len(inputs),
	)
	maps.Copy(entries, r.entries)

	for _, input := range inputs {
		entries[input.PreviousOutput] = input
	}

	return ReservedSet{entries: entries}
}

// Contains returns true if the out point is reserved.
func (r ReservedSet) Contains(op cell.OutPoint) bool {
	_, ok := r.entries[op]
	return ok
}

// Len returns the number of reserved cells.
func (r ReservedSet) Len() int {
	return len(r.entries)
}

// OutPoints returns the reserved out points in a stable order.
func (r ReservedSet) OutPoints() []cell.OutPoint {
	ops := maps.Keys(r.entries)
	sort.Slice(ops, func(i, j int) bool {
		c := bytes.Compare(ops[i].TxHash[:], ops[j].TxHash[:])
		if c != 0 {
			return c < 0
		}

		return ops[i].Index < ops[j].Index
	})

	return ops
}

// Inputs returns the reserved inputs, ordered like OutPoints.
func (r ReservedSet) Inputs() []cell.CellInput {
	ops := r.OutPoints()
	inputs := make([]cell.CellInput, 0, len(ops))
	for _, op := range ops {
		inputs = append(inputs, r.entries[op])
	}

	return inputs
}

// AvailableInputs returns the unspent cells that may still be spent by the
// transaction being built: those that are neither among its inputs nor
// reserved. Only plain capacity cells (no type script, no data) are
// returned, so token and code cells are never burnt as fees. The result
// keeps the order of unspent and may be empty.
func AvailableInputs(draftInputs []cell.CellInput, unspent []*cell.LiveCell,
	reserved ReservedSet) []*cell.LiveCell {

	committed := make(map[cell.OutPoint]struct{}, len(draftInputs))
	for _, input := range draftInputs {
		committed[input.PreviousOutput] = struct{}{}
	}

	available := make([]*cell.LiveCell, 0, len(unspent))
	for _, live := range unspent {
		if _, ok := committed[live.OutPoint]; ok {
			continue
		}
		if reserved.Contains(live.OutPoint) {
			continue
		}
		if live.Output.Type != nil || live.OutputDataLen > 0 ||
			len(live.Data) > 0 {

			continue
		}

		available = append(available, live)
	}

	return available
}
