package udtgarden

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtwallet"
)

// GovernanceMismatchCode is the exit code of the UDT script when tokens are
// created without the governance lock among the inputs.
const GovernanceMismatchCode int64 = -52

var (
	// ErrForeignLock is returned when asked to spend a cell that isn't
	// guarded by our own lock.
	ErrForeignLock = errors.New("cell is not guarded by our lock")

	// ErrEmptyBlob is returned when deploying a code cell without code.
	ErrEmptyBlob = errors.New("code blob is empty")
)

// IsGovernanceMismatch returns true if err is a ledger rejection of a UDT
// issued under a governance hash the inputs can't satisfy.
func IsGovernanceMismatch(err error) bool {
	var rejection *chainrpc.LedgerRejection
	if !errors.As(err, &rejection) {
		return false
	}

	return rejection.IsScriptFailure(GovernanceMismatchCode)
}

// State an enum that represents the stage a deployed or minted cell has
// reached.
type State uint8

const (
	// StateUndeployed denotes code that hasn't been put on chain yet.
	StateUndeployed State = 0

	// StateDeployed denotes a code cell accepted by the ledger, usable as
	// a dep.
	StateDeployed State = 1

	// StateIssued denotes a freshly issued UDT cell.
	StateIssued State = 2

	// StateTransferred denotes a UDT cell created by a transfer.
	StateTransferred State = 3

	// StateMinted denotes a freshly minted type-id cell.
	StateMinted State = 4

	// StateUpdated denotes a type-id cell whose data was replaced at least
	// once.
	StateUpdated State = 5
)

// String returns a human-readable string for the target state.
func (s State) String() string {
	switch s {
	case StateUndeployed:
		return "StateUndeployed"

	case StateDeployed:
		return "StateDeployed"

	case StateIssued:
		return "StateIssued"

	case StateTransferred:
		return "StateTransferred"

	case StateMinted:
		return "StateMinted"

	case StateUpdated:
		return "StateUpdated"

	default:
		return fmt.Sprintf("UnknownState(%v)", int(s))
	}
}

// DeployedCode is a code cell on chain, referenced by the cells whose type
// script runs it.
type DeployedCode struct {
	// TxHash is the hash of the deploying transaction.
	TxHash cell.Hash

	// DataHash is the content hash of the code, the code hash of the type
	// scripts that run it.
	DataHash cell.Hash

	// GovernanceHash is the lock hash of the deployer. UDTs issued
	// against the code are governed by it.
	GovernanceHash cell.Hash

	// CellDep references the code cell.
	CellDep cell.CellDep

	// Input is the code cell as an input, kept in the reserved set.
	Input cell.CellInput

	// Size is the length of the code in bytes.
	Size int

	// Capacity is the capacity locked up in the code cell.
	Capacity uint64

	State State
}

// UDTCell is a live cell holding user defined tokens.
type UDTCell struct {
	// TxHash is the hash of the transaction that created the cell.
	TxHash cell.Hash

	// Input is the cell as an input to a future transfer.
	Input cell.CellInput

	// TypeScript identifies the token. It never changes across
	// transfers.
	TypeScript cell.Script

	// TypeHash is the hash of TypeScript.
	TypeHash cell.Hash

	// Amount is the number of tokens the cell holds.
	Amount *big.Int

	// Lock guards the cell.
	Lock cell.Script

	// CellDep references the UDT code.
	CellDep cell.CellDep

	// Capacity is the capacity of the cell.
	Capacity uint64

	State State
}

// TypeIDCell is a live singleton cell guarded by a type-id.
type TypeIDCell struct {
	// TxHash is the hash of the transaction that created the cell.
	TxHash cell.Hash

	// Input is the cell as an input to a future update.
	Input cell.CellInput

	// TypeScript carries the type-id as its args.
	TypeScript cell.Script

	// TypeHash is the hash of TypeScript, stable across updates.
	TypeHash cell.Hash

	// TypeIDArgs are the args derived when the cell was minted.
	TypeIDArgs []byte

	// ConsumedOutPoint is the out point the type-id was derived from.
	ConsumedOutPoint cell.OutPoint

	// CellDep references the type-id code.
	CellDep cell.CellDep

	// Data is the payload of the cell.
	Data []byte

	// Capacity is the capacity of the cell.
	Capacity uint64

	State State
}

// Journal records the results of every workflow step so a run can be
// inspected or resumed later.
type Journal interface {
	// RecordDeployment stores a deployed code cell.
	RecordDeployment(ctx context.Context, code *DeployedCode) error

	// RecordUDTCell stores an issued or transferred UDT cell.
	RecordUDTCell(ctx context.Context, udt *UDTCell) error

	// RecordTypeIDCell stores a minted or updated type-id cell.
	RecordTypeIDCell(ctx context.Context, typeID *TypeIDCell) error

	// RecordReserved stores the reserved set as of the last step.
	RecordReserved(ctx context.Context,
		reserved udtwallet.ReservedSet) error
}

// DraftBuilder assembles funded drafts.
type DraftBuilder interface {
	// Build assembles a draft creating the requested outputs.
	Build(ctx context.Context, req *udtwallet.BuildRequest,
		reserved udtwallet.ReservedSet) (*udtwallet.Draft, error)
}

// Submitter signs and submits drafts.
type Submitter interface {
	// SignAndSubmit signs and submits the draft, returning the hash of
	// the transaction and the reserved set extended with its inputs.
	SignAndSubmit(ctx context.Context, draft *udtwallet.Draft,
		reserved udtwallet.ReservedSet) (cell.Hash, udtwallet.ReservedSet,
		error)

	// LockScript is the lock of the cells the submitter can spend.
	LockScript() cell.Script
}

// A compile-time assertion to ensure the wallet types satisfy the
// interfaces the Gardener needs.
var (
	_ DraftBuilder = (*udtwallet.Assembler)(nil)
	_ Submitter    = (*udtwallet.Wallet)(nil)
)
