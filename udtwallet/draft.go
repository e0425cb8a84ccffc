package udtwallet

import (
	"fmt"
	"sort"

	"github.com/cellforge/udtforge/cell"
)

// Draft is an assembled but unsigned transaction. Outputs whose type args
// depend on the chosen inputs start out as placeholders; they must be
// patched with SetTypeArgs before Finalize hands out a transaction that can
// be signed.
type Draft struct {
	tx *cell.Transaction

	pending map[int]struct{}
}

// newDraft wraps tx, marking the outputs at the given indexes as pending.
func newDraft(tx *cell.Transaction, pending ...int) *Draft {
	d := &Draft{
		tx:      tx,
		pending: make(map[int]struct{}, len(pending)),
	}
	for _, i := range pending {
		d.pending[i] = struct{}{}
	}

	return d
}

// Inputs returns a copy of the inputs the draft spends.
func (d *Draft) Inputs() []cell.CellInput {
	return append([]cell.CellInput(nil), d.tx.Inputs...)
}

// FirstInput returns the out point of the first input, which is what a
// type-id minted by this draft is derived from.
func (d *Draft) FirstInput() (cell.OutPoint, error) {
	if len(d.tx.Inputs) == 0 {
		return cell.OutPoint{}, fmt.Errorf("draft has no inputs")
	}

	return d.tx.Inputs[0].PreviousOutput, nil
}

// Output returns a copy of the i-th output and its data.
func (d *Draft) Output(i int) (cell.CellOutput, []byte, error) {
	if i < 0 || i >= len(d.tx.Outputs) {
		return cell.CellOutput{}, nil, fmt.Errorf("output index %d out "+
			"of range", i)
	}

	data := append([]byte(nil), d.tx.OutputsData[i]...)
	return d.tx.Outputs[i].Copy(), data, nil
}

// NumOutputs returns the number of outputs of the draft.
func (d *Draft) NumOutputs() int {
	return len(d.tx.Outputs)
}

// Pending returns the indexes of the outputs still waiting for their type
// args, in ascending order.
func (d *Draft) Pending() []int {
	idx := make([]int, 0, len(d.pending))
	for i := range d.pending {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	return idx
}

// SetTypeArgs fills in the type args of the i-th output, which must be a
// pending placeholder.
func (d *Draft) SetTypeArgs(i int, args []byte) error {
	if _, ok := d.pending[i]; !ok {
		return fmt.Errorf("output %d has no pending type args", i)
	}

	out := &d.tx.Outputs[i]
	if out.Type == nil {
		return fmt.Errorf("output %d has no type script", i)
	}
	out.Type.Args = append([]byte(nil), args...)

	delete(d.pending, i)

	return nil
}

// Finalize returns the transaction ready to be signed. It fails with
// ErrDraftNotFinal while any placeholder is left, and checks that every
// output holds enough capacity for itself.
func (d *Draft) Finalize() (*cell.Transaction, error) {
	if len(d.pending) != 0 {
		return nil, fmt.Errorf("%w: outputs %v", ErrDraftNotFinal,
			d.Pending())
	}

	if err := d.tx.Validate(); err != nil {
		return nil, err
	}
	if len(d.tx.Witnesses) != len(d.tx.Inputs) {
		return nil, fmt.Errorf("%w: %d witnesses for %d inputs",
			cell.ErrSchemaViolation, len(d.tx.Witnesses),
			len(d.tx.Inputs))
	}

	for i, out := range d.tx.Outputs {
		err := cell.CheckOutputCapacity(out, d.tx.OutputsData[i])
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
	}

	return d.tx.Copy(), nil
}
