package udtwallet

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/stretchr/testify/require"
)

const ckb = cell.ShannonsPerCKByte

type walletHarness struct {
	t         *testing.T
	chain     *MockChain
	key       *udtscript.Key
	assembler *Assembler
	wallet    *Wallet
}

func newWalletHarness(t *testing.T, funding ...uint64) *walletHarness {
	t.Helper()

	key, err := udtscript.NewKeyFromBytes(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	chain := NewMockChain()
	for _, amt := range funding {
		chain.Fund(key.LockScript(), amt)
	}

	return &walletHarness{
		t:     t,
		chain: chain,
		key:   key,
		assembler: NewAssembler(&AssemblerConfig{
			Chain:        chain,
			Builder:      NewSafeBuilder(&GreedySelector{}),
			Lock:         key.LockScript(),
			StandardDeps: []cell.CellDep{chain.SecpDep()},
			Fee:          DefaultFee,
		}),
		wallet: NewWallet(chain, key),
	}
}

func (h *walletHarness) plainIntent(capacity uint64) cell.OutputIntent {
	return cell.OutputIntent{
		Output: cell.CellOutput{
			Capacity: capacity,
			Lock:     h.key.LockScript(),
		},
	}
}

// TestAssemblerGuarantees checks the shape of an assembled draft.
func TestAssemblerGuarantees(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb, 5000*ckb)
	ctx := context.Background()

	extraDep := cell.NewCodeDep(cell.ContentHash([]byte("code")), 0)
	draft, err := h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{
			h.plainIntent(100 * ckb),
			h.plainIntent(200 * ckb),
		},
		ExtraDeps: []cell.CellDep{extraDep},
	}, ReservedSet{})
	require.NoError(t, err)

	tx, err := draft.Finalize()
	require.NoError(t, err)

	require.Len(t, tx.Outputs, 2)
	require.Len(t, tx.OutputsData, len(tx.Outputs))
	require.Len(t, tx.Witnesses, len(tx.Inputs))
	require.Equal(t, []cell.CellDep{h.chain.SecpDep(), extraDep},
		tx.CellDeps)
	require.Equal(t, 100*ckb, tx.Outputs[0].Capacity)
	require.Equal(t, 200*ckb, tx.Outputs[1].Capacity)

	// The first witness is the signature placeholder, the rest are
	// empty.
	witness, err := cell.DecodeWitnessArgs(tx.Witnesses[0])
	require.NoError(t, err)
	require.Equal(t, make([]byte, 65), witness.Lock)
	for _, w := range tx.Witnesses[1:] {
		require.Empty(t, w)
	}
}

// TestAssemblerExtraInputs checks extra inputs are appended to the selected
// ones and never selected twice.
func TestAssemblerExtraInputs(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb, 5000*ckb)
	ctx := context.Background()

	unspent, err := h.chain.ListUnspent(ctx, h.key.LockScript())
	require.NoError(t, err)
	extra := unspent[0].AsInput()

	draft, err := h.assembler.Build(ctx, &BuildRequest{
		Outputs:     []cell.OutputIntent{h.plainIntent(100 * ckb)},
		ExtraInputs: []cell.CellInput{extra},
	}, ReservedSet{})
	require.NoError(t, err)

	inputs := draft.Inputs()
	require.Len(t, inputs, 2)
	require.Equal(t, unspent[1].OutPoint, inputs[0].PreviousOutput)
	require.Equal(t, extra, inputs[1])
}

// TestAssemblerErrors checks the failure modes of the assembler.
func TestAssemblerErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Everything reserved.
	h := newWalletHarness(t, 5000*ckb)
	unspent, err := h.chain.ListUnspent(ctx, h.key.LockScript())
	require.NoError(t, err)
	reserved := NewReservedSet(unspent[0].AsInput())

	_, err = h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{h.plainIntent(100 * ckb)},
	}, reserved)
	require.ErrorIs(t, err, ErrInputExhaustion)

	// Not enough capacity, the fee alone is 1000 CKBytes.
	h = newWalletHarness(t, 900*ckb)
	_, err = h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{h.plainIntent(100 * ckb)},
	}, ReservedSet{})
	require.ErrorIs(t, err, ErrInsufficientCapacity)

	// An output below its occupied capacity.
	h = newWalletHarness(t, 5000*ckb)
	_, err = h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{{
			Output: cell.CellOutput{
				Capacity: 61 * ckb,
				Lock:     h.key.LockScript(),
			},
		}},
	}, ReservedSet{})
	require.NoError(t, err)

	_, err = h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{{
			Output: cell.CellOutput{
				Capacity: 61 * ckb,
				Lock:     h.key.LockScript(),
			},
			Data: []byte{1},
		}},
	}, ReservedSet{})
	require.ErrorIs(t, err, cell.ErrOutputCapacityTooLow)
}

// emptyBuilder returns a base transaction without any inputs.
type emptyBuilder struct{}

func (emptyBuilder) BuildBase(context.Context,
	*BaseRequest) (*cell.Transaction, error) {

	return &cell.Transaction{}, nil
}

// TestAssemblerEmptyBase checks a base builder that selects nothing is
// reported as input exhaustion.
func TestAssemblerEmptyBase(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb)
	assembler := NewAssembler(&AssemblerConfig{
		Chain:        h.chain,
		Builder:      emptyBuilder{},
		Lock:         h.key.LockScript(),
		StandardDeps: []cell.CellDep{h.chain.SecpDep()},
		Fee:          DefaultFee,
	})

	var err error
	require.NotPanics(t, func() {
		_, err = assembler.Build(context.Background(), &BuildRequest{
			Outputs: []cell.OutputIntent{h.plainIntent(100 * ckb)},
		}, ReservedSet{})
	})
	require.ErrorIs(t, err, ErrInputExhaustion)
}

// TestDraftPlaceholders checks that a draft with pending type args can't be
// finalized until every placeholder is patched.
func TestDraftPlaceholders(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb)
	ctx := context.Background()

	intent := h.plainIntent(200 * ckb)
	intent.Output.Type = &cell.Script{HashType: cell.HashTypeType}
	intent.PendingTypeArgs = true

	draft, err := h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{intent, h.plainIntent(100 * ckb)},
	}, ReservedSet{})
	require.NoError(t, err)
	require.Equal(t, []int{0}, draft.Pending())

	_, err = draft.Finalize()
	require.ErrorIs(t, err, ErrDraftNotFinal)

	// The wallet refuses to sign it too.
	_, _, err = h.wallet.SignAndSubmit(ctx, draft, ReservedSet{})
	require.ErrorIs(t, err, ErrDraftNotFinal)
	require.Zero(t, h.chain.NumTransactions())

	// Only pending outputs can be patched.
	require.Error(t, draft.SetTypeArgs(1, []byte{1}))

	first, err := draft.FirstInput()
	require.NoError(t, err)
	args := cell.TypeIDArgs(first)
	require.NoError(t, draft.SetTypeArgs(0, args))
	require.Empty(t, draft.Pending())

	tx, err := draft.Finalize()
	require.NoError(t, err)
	require.Equal(t, args, tx.Outputs[0].Type.Args)

	// Finalize hands out a copy.
	tx.Outputs[0].Type.Args[0] ^= 1
	out, _, err := draft.Output(0)
	require.NoError(t, err)
	require.Equal(t, args, out.Type.Args)
}

// TestWalletSubmitChain submits two dependent transactions and checks the
// reserved set keeps the in-flight inputs from being offered again.
func TestWalletSubmitChain(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb, 5000*ckb)
	ctx := context.Background()

	draft, err := h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{h.plainIntent(3000 * ckb)},
	}, ReservedSet{})
	require.NoError(t, err)

	txHash, reserved, err := h.wallet.SignAndSubmit(
		ctx, draft, ReservedSet{},
	)
	require.NoError(t, err)
	require.Equal(t, 1, reserved.Len())
	for _, in := range draft.Inputs() {
		require.True(t, reserved.Contains(in.PreviousOutput))
	}

	_, ok := h.chain.Transaction(txHash)
	require.True(t, ok)
	_, ok = h.chain.LiveCell(cell.OutPoint{TxHash: txHash})
	require.True(t, ok)

	// A second transaction builds on the output of the first.
	draft, err = h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{h.plainIntent(5000 * ckb)},
	}, reserved)
	require.NoError(t, err)

	_, reserved, err = h.wallet.SignAndSubmit(ctx, draft, reserved)
	require.NoError(t, err)
	require.Equal(t, 3, reserved.Len())
	require.Equal(t, 2, h.chain.NumTransactions())
}

// TestMockChainRejects checks the ledger rules of the mock chain.
func TestMockChainRejects(t *testing.T) {
	t.Parallel()

	h := newWalletHarness(t, 5000*ckb)
	ctx := context.Background()

	draft, err := h.assembler.Build(ctx, &BuildRequest{
		Outputs: []cell.OutputIntent{h.plainIntent(100 * ckb)},
	}, ReservedSet{})
	require.NoError(t, err)
	tx, err := draft.Finalize()
	require.NoError(t, err)

	// Unsigned.
	_, err = h.chain.SendTransaction(ctx, tx)
	var rejection *chainrpc.LedgerRejection
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, chainrpc.CodeTransactionFailedToVerify,
		rejection.RPCCode)
	require.True(t, rejection.IsScriptFailure(MockCodeSignature))

	signed, err := h.key.SignTransaction(tx)
	require.NoError(t, err)
	_, err = h.chain.SendTransaction(ctx, signed)
	require.NoError(t, err)

	// Duplicates and double spends.
	_, err = h.chain.SendTransaction(ctx, signed)
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, chainrpc.CodePoolRejectedDuplicatedTransaction,
		rejection.RPCCode)

	doubleSpend := tx.Copy()
	doubleSpend.Outputs[0].Capacity++
	doubleSpend, err = h.key.SignTransaction(doubleSpend)
	require.NoError(t, err)
	_, err = h.chain.SendTransaction(ctx, doubleSpend)
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, chainrpc.CodeTransactionFailedToResolve,
		rejection.RPCCode)
}
