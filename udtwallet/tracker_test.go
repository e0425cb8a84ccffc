package udtwallet

import (
	"math/rand"
	"testing"

	"github.com/cellforge/udtforge/cell"
	"github.com/stretchr/testify/require"
)

func randOutPoint(rng *rand.Rand) cell.OutPoint {
	var op cell.OutPoint
	_, _ = rng.Read(op.TxHash[:])
	op.Index = uint32(rng.Intn(4))

	return op
}

func plainCell(op cell.OutPoint, capacity uint64) *cell.LiveCell {
	return &cell.LiveCell{
		OutPoint: op,
		Output: cell.CellOutput{
			Capacity: capacity,
		},
	}
}

// TestAvailableInputsExcludes checks that the tracker never returns a cell
// that is either an input of the draft or reserved, no matter the order the
// reserved set was built in.
func TestAvailableInputsExcludes(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))

	for round := 0; round < 50; round++ {
		unspent := make([]*cell.LiveCell, 40)
		for i := range unspent {
			unspent[i] = plainCell(randOutPoint(rng), 100)
		}

		var (
			draftInputs []cell.CellInput
			reservedIns []cell.CellInput
		)
		for _, c := range unspent {
			switch rng.Intn(3) {
			case 0:
				draftInputs = append(draftInputs, c.AsInput())
			case 1:
				reservedIns = append(reservedIns, c.AsInput())
			}
		}

		// Build the reserved set in a random order, one step at a
		// time.
		rng.Shuffle(len(reservedIns), func(i, j int) {
			reservedIns[i], reservedIns[j] = reservedIns[j],
				reservedIns[i]
		})
		reserved := NewReservedSet()
		for _, in := range reservedIns {
			reserved = reserved.With(in)
		}

		available := AvailableInputs(draftInputs, unspent, reserved)
		require.Len(t, available,
			len(unspent)-len(draftInputs)-len(reservedIns))

		excluded := make(map[cell.OutPoint]struct{})
		for _, in := range append(draftInputs, reservedIns...) {
			excluded[in.PreviousOutput] = struct{}{}
		}
		for _, c := range available {
			require.NotContains(t, excluded, c.OutPoint)
		}
	}
}

// TestAvailableInputsStructuredKey makes sure out points that would collide
// when their hash and index were concatenated as strings stay distinct.
func TestAvailableInputsStructuredKey(t *testing.T) {
	t.Parallel()

	a := cell.OutPoint{Index: 11}
	a.TxHash[31] = 0x01
	b := cell.OutPoint{Index: 1}
	b.TxHash[31] = 0x01

	unspent := []*cell.LiveCell{plainCell(a, 1), plainCell(b, 1)}
	reserved := NewReservedSet(cell.CellInput{PreviousOutput: a})

	available := AvailableInputs(nil, unspent, reserved)
	require.Len(t, available, 1)
	require.Equal(t, b, available[0].OutPoint)
}

// TestAvailableInputsSkipsNonPlain checks that token and code cells are
// never offered as capacity.
func TestAvailableInputsSkipsNonPlain(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))

	typed := plainCell(randOutPoint(rng), 1)
	typed.Output.Type = &cell.Script{}

	withData := plainCell(randOutPoint(rng), 1)
	withData.Data = []byte{1}
	withData.OutputDataLen = 1

	plain := plainCell(randOutPoint(rng), 1)

	available := AvailableInputs(
		nil, []*cell.LiveCell{typed, withData, plain}, ReservedSet{},
	)
	require.Equal(t, []*cell.LiveCell{plain}, available)

	require.Empty(t, AvailableInputs(nil, nil, ReservedSet{}))
}

// TestReservedSetImmutable checks that With never changes the receiver.
func TestReservedSetImmutable(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	first := cell.CellInput{PreviousOutput: randOutPoint(rng)}
	second := cell.CellInput{PreviousOutput: randOutPoint(rng)}

	base := NewReservedSet(first)
	extended := base.With(second)

	require.Equal(t, 1, base.Len())
	require.False(t, base.Contains(second.PreviousOutput))
	require.Equal(t, 2, extended.Len())
	require.True(t, extended.Contains(first.PreviousOutput))
	require.True(t, extended.Contains(second.PreviousOutput))

	// Re-adding an entry is idempotent.
	require.Equal(t, 2, extended.With(first).Len())

	// The zero value is an empty set.
	var empty ReservedSet
	require.Zero(t, empty.Len())
	require.False(t, empty.Contains(first.PreviousOutput))

	ops := extended.OutPoints()
	require.Len(t, ops, 2)
	require.Len(t, extended.Inputs(), 2)
	require.Equal(t, ops[0], extended.Inputs()[0].PreviousOutput)
}
