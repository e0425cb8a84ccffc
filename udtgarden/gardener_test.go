package udtgarden

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/lightningnetwork/lnd/fn"
	"github.com/stretchr/testify/require"
)

const ckb = cell.ShannonsPerCKByte

var (
	udtCode    = bytes.Repeat([]byte("simple udt "), 20)
	typeIDCode = bytes.Repeat([]byte("type id "), 30)
)

type gardenHarness struct {
	t        *testing.T
	chain    *udtwallet.MockChain
	key      *udtscript.Key
	other    *udtscript.Key
	journal  *MockJournal
	gardener *Gardener
}

func newGardenHarness(t *testing.T, numCells int) *gardenHarness {
	t.Helper()

	key, err := udtscript.NewKeyFromBytes(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	other, err := udtscript.NewKeyFromBytes(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	chain := udtwallet.NewMockChain()
	for i := 0; i < numCells; i++ {
		chain.Fund(key.LockScript(), 5000*ckb)
	}
	chain.RegisterScript(
		cell.ContentHash(udtCode), udtwallet.MockUDTScript,
	)
	chain.RegisterScript(
		cell.ContentHash(typeIDCode), udtwallet.MockTypeIDScript,
	)

	journal := NewMockJournal()
	assembler := udtwallet.NewAssembler(&udtwallet.AssemblerConfig{
		Chain:        chain,
		Builder:      udtwallet.NewSafeBuilder(&udtwallet.GreedySelector{}),
		Lock:         key.LockScript(),
		StandardDeps: []cell.CellDep{chain.SecpDep()},
		Fee:          udtwallet.DefaultFee,
	})

	return &gardenHarness{
		t:       t,
		chain:   chain,
		key:     key,
		other:   other,
		journal: journal,
		gardener: NewGardener(&GardenerConfig{
			Builder: assembler,
			Wallet:  udtwallet.NewWallet(chain, key),
			Journal: journal,
		}),
	}
}

// liveData returns the data of a live cell, failing if it was spent.
func (h *gardenHarness) liveData(in cell.CellInput) []byte {
	h.t.Helper()

	c, ok := h.chain.LiveCell(in.PreviousOutput)
	require.True(h.t, ok, "cell %v not live", in.PreviousOutput)

	return c.Data
}

// TestDeployCode checks a deployed code cell is funded for good, hashed by
// content and reserved.
func TestDeployCode(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 2)
	ctx := context.Background()

	code, reserved, err := h.gardener.DeployCode(
		ctx, udtCode, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)

	minimum := uint64(len(udtCode))*ckb + 10_000_000_000
	require.GreaterOrEqual(t, code.Capacity, minimum)
	require.False(t, code.DataHash.IsZero())
	require.Equal(t, cell.ContentHash(udtCode), code.DataHash)
	require.Equal(t, h.key.LockScript().Hash(), code.GovernanceHash)
	require.Equal(t, cell.DepTypeCode, code.CellDep.DepType)
	require.Equal(t, StateDeployed, code.State)

	require.Equal(t, udtCode, h.liveData(code.Input))
	require.True(t, reserved.Contains(code.Input.PreviousOutput))

	require.Len(t, h.journal.Deployments, 1)
	require.Equal(t, reserved, h.journal.Reserved)

	_, _, err = h.gardener.DeployCode(ctx, nil, reserved)
	require.ErrorIs(t, err, ErrEmptyBlob)
}

// TestUDTScenario issues 250000 tokens, transfers 1000 of them to a second
// lock, then checks the ledger refuses an issuance under a foreign
// governance hash.
func TestUDTScenario(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)
	ctx := context.Background()

	foreign := h.other.LockScript().Hash()
	res, reserved, err := h.gardener.RunUDTScenario(ctx, &UDTScenario{
		Code:              udtCode,
		IssueAmount:       big.NewInt(250000),
		TransferAmount:    big.NewInt(1000),
		Recipient:         h.other.LockScript(),
		ForeignGovernance: fn.Some(foreign),
	}, udtwallet.ReservedSet{})
	require.NoError(t, err)

	// Identity is preserved across the transfer.
	require.Equal(t, res.Issued.TypeHash, res.Transferred.TypeHash)
	require.True(t, res.Issued.TypeScript.Equal(res.Transferred.TypeScript))
	require.Equal(t, res.Code.DataHash, res.Issued.TypeScript.CodeHash)
	require.Equal(t,
		cell.MultiHash(res.Code.GovernanceHash.Bytes()).Bytes(),
		res.Issued.TypeScript.Args,
	)
	require.Equal(t, StateIssued, res.Issued.State)
	require.Equal(t, StateTransferred, res.Transferred.State)

	// The transfer spent the issued cell and paid the recipient.
	_, ok := h.chain.LiveCell(res.Issued.Input.PreviousOutput)
	require.False(t, ok)
	amount, err := cell.DecodeUDTData(h.liveData(res.Transferred.Input))
	require.NoError(t, err)
	require.EqualValues(t, 1000, amount.Int64())
	require.True(t, h.other.LockScript().Equal(res.Transferred.Lock))

	// The foreign issuance was rejected with the mismatch code and never
	// made it on chain.
	require.True(t, IsGovernanceMismatch(res.ForeignRejection))
	var rejection *chainrpc.LedgerRejection
	require.True(t, errors.As(res.ForeignRejection, &rejection))
	require.Equal(t, GovernanceMismatchCode, rejection.ScriptCode)
	require.Equal(t, 3, h.chain.NumTransactions())

	// The code cell and the issued cell stay reserved, the transferred
	// cell belongs to someone else.
	require.True(t, reserved.Contains(res.Code.Input.PreviousOutput))
	require.True(t, reserved.Contains(res.Issued.Input.PreviousOutput))
	require.False(t, reserved.Contains(
		res.Transferred.Input.PreviousOutput,
	))

	require.Len(t, h.journal.Deployments, 1)
	require.Len(t, h.journal.UDTCells, 2)
}

// TestUDTScenarioForeignAccepted checks the scenario fails if the "foreign"
// governance is actually ours.
func TestUDTScenarioForeignAccepted(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)
	own := h.key.LockScript().Hash()

	_, _, err := h.gardener.RunUDTScenario(
		context.Background(), &UDTScenario{
			Code:              udtCode,
			IssueAmount:       big.NewInt(250000),
			TransferAmount:    big.NewInt(1000),
			Recipient:         h.other.LockScript(),
			ForeignGovernance: fn.Some(own),
		}, udtwallet.ReservedSet{},
	)
	require.ErrorIs(t, err, ErrForeignIssuanceAccepted)
}

// TestUDTScenarioNoForeign checks no foreign issuance is attempted unless a
// governance hash is given.
func TestUDTScenarioNoForeign(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)

	res, _, err := h.gardener.RunUDTScenario(
		context.Background(), &UDTScenario{
			Code:              udtCode,
			IssueAmount:       big.NewInt(500),
			TransferAmount:    big.NewInt(500),
			Recipient:         h.key.LockScript(),
			ForeignGovernance: fn.None[cell.Hash](),
		}, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)
	require.NoError(t, res.ForeignRejection)
	require.Equal(t, 3, h.chain.NumTransactions())
}

// TestTransferChain transfers a UDT to ourselves repeatedly, each transfer
// spending the previous one.
func TestTransferChain(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)
	ctx := context.Background()
	lock := h.key.LockScript()

	code, reserved, err := h.gardener.DeployCode(
		ctx, udtCode, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)
	issued, reserved, err := h.gardener.IssueUDT(
		ctx, code, big.NewInt(500), reserved,
	)
	require.NoError(t, err)

	prev := issued
	for _, amt := range []int64{400, 300, 300} {
		prev, reserved, err = h.gardener.TransferUDT(
			ctx, prev, big.NewInt(amt), lock, reserved,
		)
		require.NoError(t, err)
		require.Equal(t, issued.TypeHash, prev.TypeHash)
		require.True(t, reserved.Contains(prev.Input.PreviousOutput))
	}

	amount, err := cell.DecodeUDTData(h.liveData(prev.Input))
	require.NoError(t, err)
	require.EqualValues(t, 300, amount.Int64())
}

// TestGardenerRejects checks the local failure modes of the workflows.
func TestGardenerRejects(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)
	ctx := context.Background()

	code, reserved, err := h.gardener.DeployCode(
		ctx, udtCode, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)

	// Amounts must fit a Uint128.
	_, _, err = h.gardener.IssueUDT(ctx, code, big.NewInt(-1), reserved)
	require.ErrorIs(t, err, cell.ErrAmountOutOfRange)

	// We can't spend a cell someone else owns.
	issued, reserved, err := h.gardener.IssueUDT(
		ctx, code, big.NewInt(10), reserved,
	)
	require.NoError(t, err)
	sent, reserved, err := h.gardener.TransferUDT(
		ctx, issued, big.NewInt(10), h.other.LockScript(), reserved,
	)
	require.NoError(t, err)
	_, _, err = h.gardener.TransferUDT(
		ctx, sent, big.NewInt(10), h.key.LockScript(), reserved,
	)
	require.ErrorIs(t, err, ErrForeignLock)

	// A journal failure is reported.
	h.journal.FailWith = ErrMockJournal
	_, _, err = h.gardener.DeployCode(ctx, typeIDCode, reserved)
	require.ErrorIs(t, err, ErrMockJournal)
}

// TestIssueWithoutFunds checks input exhaustion surfaces from the
// assembler.
func TestIssueWithoutFunds(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 1)
	ctx := context.Background()

	code, reserved, err := h.gardener.DeployCode(
		ctx, udtCode, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)

	_, _, err = h.gardener.IssueUDT(ctx, code, big.NewInt(1), reserved)
	require.ErrorIs(t, err, udtwallet.ErrInputExhaustion)
}

// TestTypeIDScenario mints a type-id cell and updates it twice: the three
// transactions share one type script while the data changes.
func TestTypeIDScenario(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 6)
	ctx := context.Background()

	res, reserved, err := h.gardener.RunTypeIDScenario(
		ctx, &TypeIDScenario{
			Code:    typeIDCode,
			Data:    nil,
			Updates: [][]byte{{0x01}, {0x02, 0x03}},
		}, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)
	require.Len(t, res.Updates, 2)

	minted := res.Minted
	require.Equal(t, StateMinted, minted.State)
	require.Equal(t, cell.TypeIDArgs(minted.ConsumedOutPoint),
		minted.TypeIDArgs)
	require.Equal(t, minted.TypeIDArgs, minted.TypeScript.Args)
	require.Equal(t, res.Code.DataHash, minted.TypeScript.CodeHash)

	// The minting transaction consumed the out point the args derive from.
	tx, ok := h.chain.Transaction(minted.TxHash)
	require.True(t, ok)
	require.Equal(t, minted.ConsumedOutPoint, tx.Inputs[0].PreviousOutput)

	txHashes := map[cell.Hash]struct{}{minted.TxHash: {}}
	for _, upd := range res.Updates {
		txHashes[upd.TxHash] = struct{}{}

		require.Equal(t, StateUpdated, upd.State)
		require.Equal(t, minted.TypeHash, upd.TypeHash)
		require.Equal(t, minted.TypeScript.CodeHash,
			upd.TypeScript.CodeHash)
		require.Equal(t, minted.TypeIDArgs, upd.TypeScript.Args)
		require.Equal(t, minted.ConsumedOutPoint, upd.ConsumedOutPoint)
	}
	require.Len(t, txHashes, 3)

	// Only the last version is live.
	for _, prev := range []*TypeIDCell{minted, res.Updates[0]} {
		_, ok := h.chain.LiveCell(prev.Input.PreviousOutput)
		require.False(t, ok)
	}
	last := res.Updates[1]
	require.Equal(t, []byte{0x02, 0x03}, h.liveData(last.Input))
	require.True(t, reserved.Contains(last.Input.PreviousOutput))

	require.Len(t, h.journal.TypeIDCells, 3)
}

// TestMintDistinctTypeIDs checks two mints never share a type-id.
func TestMintDistinctTypeIDs(t *testing.T) {
	t.Parallel()

	h := newGardenHarness(t, 4)
	ctx := context.Background()

	code, reserved, err := h.gardener.DeployCode(
		ctx, typeIDCode, udtwallet.ReservedSet{},
	)
	require.NoError(t, err)

	first, reserved, err := h.gardener.MintTypeIDCell(
		ctx, code, []byte("a"), reserved,
	)
	require.NoError(t, err)
	second, _, err := h.gardener.MintTypeIDCell(
		ctx, code, []byte("a"), reserved,
	)
	require.NoError(t, err)

	require.NotEqual(t, first.ConsumedOutPoint, second.ConsumedOutPoint)
	require.NotEqual(t, first.TypeIDArgs, second.TypeIDArgs)
	require.NotEqual(t, first.TypeHash, second.TypeHash)
}

// TestStateString checks every state has a name.
func TestStateString(t *testing.T) {
	t.Parallel()

	states := []State{
		StateUndeployed, StateDeployed, StateIssued, StateTransferred,
		StateMinted, StateUpdated,
	}
	for _, s := range states {
		require.NotContains(t, s.String(), "Unknown")
	}
	require.Equal(t, "UnknownState(42)", State(42).String())
}
