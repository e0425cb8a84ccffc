package udtwallet

import (
	"context"
	"errors"

	"github.com/cellforge/udtforge/cell"
)

var (
	// ErrInsufficientCapacity is returned by a CoinSelector when the
	// candidates can't cover the required capacity.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrInputExhaustion is returned when no spendable cell is left under
	// the signer's lock once in-flight and reserved cells are excluded.
	ErrInputExhaustion = errors.New("no spendable inputs available")

	// ErrDraftNotFinal is returned when finalizing a draft that still has
	// placeholder outputs.
	ErrDraftNotFinal = errors.New("draft has unresolved placeholders")
)

// ChainBridge is our bridge to the ledger: it lists the live cells of a lock
// and accepts signed transactions.
type ChainBridge interface {
	// ListUnspent returns every live cell guarded by the given lock.
	ListUnspent(ctx context.Context, lock cell.Script) ([]*cell.LiveCell,
		error)

	// SendTransaction submits a signed transaction and returns its hash.
	// A refusal by the ledger is returned as a
	// *chainrpc.LedgerRejection.
	SendTransaction(ctx context.Context,
		tx *cell.Transaction) (cell.Hash, error)
}

// CoinSelector picks the inputs that pay for a transaction.
type CoinSelector interface {
	// SelectInputs returns a subset of the candidates whose capacity
	// sums to at least required, or ErrInsufficientCapacity.
	SelectInputs(candidates []*cell.LiveCell,
		required uint64) ([]*cell.LiveCell, error)
}

// BaseRequest is what a BaseBuilder needs to put together a plain capacity
// transfer.
type BaseRequest struct {
	// FromLock pays for the transaction and receives the change.
	FromLock cell.Script

	// ToLock receives the transferred capacity.
	ToLock cell.Script

	// Required is the capacity the inputs must cover, fee included.
	Required uint64

	// Fee is the part of Required that is left to the miner.
	Fee uint64

	// Candidates are the cells the builder may spend.
	Candidates []*cell.LiveCell

	// StandardDeps are the deps the lock scripts need, usually the
	// secp256k1 dep group.
	StandardDeps []cell.CellDep
}

// BaseBuilder builds a funded base transaction the Assembler then reshapes
// into the transaction actually needed.
type BaseBuilder interface {
	// BuildBase returns a transaction spending enough candidates to pay
	// Required, with a payment output to ToLock and, if anything is left,
	// a change output to FromLock.
	BuildBase(ctx context.Context, req *BaseRequest) (*cell.Transaction,
		error)
}

// Signer signs transactions spending cells of a single lock.
type Signer interface {
	// SignTransaction returns a signed copy of the transaction.
	SignTransaction(tx *cell.Transaction) (*cell.Transaction, error)

	// LockScript is the lock of the cells the signer can spend.
	LockScript() cell.Script
}
