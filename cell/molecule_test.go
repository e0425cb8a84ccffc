package cell

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/nervosnetwork/ckb-sdk-go/v2/types/molecule"
	"github.com/stretchr/testify/require"
)

// TestScriptLayout checks the table layout of a default lock script.
func TestScriptLayout(t *testing.T) {
	t.Parallel()

	s := baseScript()
	encoded := s.Serialize()

	// 4 header words, 32 byte code hash, 1 byte hash type, and 4+20
	// bytes of args.
	require.Len(t, encoded, 16+32+1+24)
	require.Equal(t,
		"49000000"+"10000000"+"30000000"+"31000000",
		hex.EncodeToString(encoded[:16]),
	)
	require.Equal(t, s.CodeHash[:], encoded[16:48])
	require.Equal(t, byte(HashTypeType), encoded[48])
	require.Equal(t, "14000000", hex.EncodeToString(encoded[49:53]))
	require.Equal(t, s.Args, encoded[53:])
}

// TestWitnessPlaceholderLayout checks the well known layout of a witness
// with a 65 byte lock placeholder and no type fields.
func TestWitnessPlaceholderLayout(t *testing.T) {
	t.Parallel()

	w := WitnessArgs{Lock: make([]byte, 65)}
	encoded := w.Serialize()

	require.Equal(t,
		"55000000"+"10000000"+"55000000"+"55000000"+"41000000",
		hex.EncodeToString(encoded[:20]),
	)
	require.Len(t, encoded, 85)

	decoded, err := DecodeWitnessArgs(encoded)
	require.NoError(t, err)
	require.Equal(t, w.Lock, decoded.Lock)
	require.Nil(t, decoded.InputType)
	require.Nil(t, decoded.OutputType)
}

// TestDecodeRejectsMalformed feeds truncated and inconsistent buffers into
// the decoders.
func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	script := baseScript().Serialize()

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "empty",
			data: nil,
		},
		{
			name: "truncated",
			data: script[:len(script)-1],
		},
		{
			name: "trailing byte",
			data: append(append([]byte{}, script...), 0),
		},
		{
			name: "wrong field count",
			data: WitnessArgs{Lock: []byte{1}}.Serialize()[:4],
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeScript(tc.data)
			require.ErrorIs(t, err, ErrSchemaViolation)
		})
	}

	// A 3 field table whose args fixvec claims 9 items but holds none.
	bad, err := hex.DecodeString("35000000" + "10000000" + "30000000" +
		"31000000" + strings.Repeat("00", 32) + "01" + "09000000")
	require.NoError(t, err)
	_, err = DecodeScript(bad)
	require.ErrorIs(t, err, ErrSchemaViolation)
}

// TestCellOutputRoundTrip makes sure outputs with and without a type script
// decode to what was encoded.
func TestCellOutputRoundTrip(t *testing.T) {
	t.Parallel()

	lock := baseScript()
	typeScript := Script{HashType: HashTypeData, Args: []byte{1, 2, 3}}

	plain := CellOutput{Capacity: 6_100_000_000, Lock: lock}
	decoded, err := DecodeCellOutput(plain.Serialize())
	require.NoError(t, err)
	require.Equal(t, plain.Capacity, decoded.Capacity)
	require.True(t, plain.Lock.Equal(decoded.Lock))
	require.Nil(t, decoded.Type)

	typed := CellOutput{Capacity: 1, Lock: lock, Type: &typeScript}
	decoded, err = DecodeCellOutput(typed.Serialize())
	require.NoError(t, err)
	require.NotNil(t, decoded.Type)
	require.True(t, typeScript.Equal(*decoded.Type))
}

// TestTransactionHashCoversRawOnly checks that witnesses don't affect the
// transaction hash while every raw field does.
func TestTransactionHashCoversRawOnly(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		CellDeps: []CellDep{{DepType: DepTypeDepGroup}},
		Inputs:   []CellInput{NewCellInput(ContentHash([]byte("a")), 1)},
		Outputs: []CellOutput{{
			Capacity: 100, Lock: baseScript(),
		}},
		OutputsData: [][]byte{{}},
		Witnesses:   [][]byte{WitnessArgs{Lock: make([]byte, 65)}.Serialize()},
	}
	require.NoError(t, tx.Validate())

	hash := tx.Hash()

	withWitness := tx.Copy()
	withWitness.Witnesses[0] = []byte{1, 2, 3}
	require.Equal(t, hash, withWitness.Hash())

	moreData := tx.Copy()
	moreData.OutputsData[0] = []byte{0}
	require.NotEqual(t, hash, moreData.Hash())

	otherInput := tx.Copy()
	otherInput.Inputs[0].PreviousOutput.Index = 2
	require.NotEqual(t, hash, otherInput.Hash())

	// The raw transaction must be a valid RawTransaction table.
	raw, err := molecule.RawTransactionFromSlice(tx.SerializeRaw(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, raw.Inputs().Len())
	require.EqualValues(t, 1, raw.CellDeps().Len())
	require.EqualValues(t, 1, raw.Outputs().Len())

	broken := tx.Copy()
	broken.OutputsData = nil
	require.ErrorIs(t, broken.Validate(), ErrSchemaViolation)
}

// TestFixedLayouts checks the struct encodings have no headers.
func TestFixedLayouts(t *testing.T) {
	t.Parallel()

	op := OutPoint{Index: 0x0a0b0c0d}
	op.TxHash[31] = 0xee
	encoded := op.Serialize()
	require.Len(t, encoded, OutPointSize)
	require.Equal(t, byte(0xee), encoded[31])
	require.Equal(t, "0d0c0b0a", hex.EncodeToString(encoded[32:]))

	input := CellInput{Since: 7, PreviousOutput: op}
	require.Len(t, input.Serialize(), CellInputSize)
	require.Equal(t,
		"0700000000000000", hex.EncodeToString(input.Serialize()[:8]),
	)

	dep := CellDep{OutPoint: op, DepType: DepTypeDepGroup}
	require.Len(t, dep.Serialize(), CellDepSize)
	require.Equal(t, byte(DepTypeDepGroup), dep.Serialize()[OutPointSize])

	decoded, err := DecodeOutPoint(encoded)
	require.NoError(t, err)
	require.Equal(t, op, decoded)

	_, err = DecodeOutPoint(encoded[:OutPointSize-1])
	require.ErrorIs(t, err, ErrSchemaViolation)
}
