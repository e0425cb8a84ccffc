package udtgarden

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtwallet"
)

// typeIDArgsSize is the size of type-id args, reserved up front so the
// capacity of a minted cell accounts for them.
const typeIDArgsSize = cell.HashSize

// GardenerConfig holds the dependencies of the Gardener.
type GardenerConfig struct {
	// Builder assembles the drafts.
	Builder DraftBuilder

	// Wallet signs and submits them.
	Wallet Submitter

	// Journal, if set, records every step.
	Journal Journal
}

// Gardener runs the asset workflows: deploying code, issuing and
// transferring UDTs, and minting and updating type-id cells. Every workflow
// takes the reserved set of the run and returns it extended with what the
// step consumed and created.
type Gardener struct {
	cfg *GardenerConfig
}

// NewGardener returns a new Gardener.
func NewGardener(cfg *GardenerConfig) *Gardener {
	return &Gardener{
		cfg: cfg,
	}
}

// submit assembles, signs and submits a transaction.
func (g *Gardener) submit(ctx context.Context, req *udtwallet.BuildRequest,
	reserved udtwallet.ReservedSet) (cell.Hash, udtwallet.ReservedSet,
	error) {

	draft, err := g.cfg.Builder.Build(ctx, req, reserved)
	if err != nil {
		return cell.Hash{}, reserved, err
	}

	return g.cfg.Wallet.SignAndSubmit(ctx, draft, reserved)
}

// journal runs record if a journal is configured, then records the reserved
// set.
func (g *Gardener) journal(ctx context.Context,
	reserved udtwallet.ReservedSet, record func(Journal) error) error {

	if g.cfg.Journal == nil {
		return nil
	}

	if err := record(g.cfg.Journal); err != nil {
		return fmt.Errorf("unable to journal step: %w", err)
	}
	if err := g.cfg.Journal.RecordReserved(ctx, reserved); err != nil {
		return fmt.Errorf("unable to journal reserved set: %w", err)
	}

	return nil
}

// DeployCode puts the code blob into a cell under our lock. The cell holds
// enough capacity to stay live as a dep, and is reserved so it's never
// spent as plain capacity.
func (g *Gardener) DeployCode(ctx context.Context, blob []byte,
	reserved udtwallet.ReservedSet) (*DeployedCode,
	udtwallet.ReservedSet, error) {

	if len(blob) == 0 {
		return nil, reserved, ErrEmptyBlob
	}

	capacity, err := cell.CapacityForBlob(len(blob))
	if err != nil {
		return nil, reserved, err
	}

	lock := g.cfg.Wallet.LockScript()
	txHash, reserved, err := g.submit(ctx, &udtwallet.BuildRequest{
		Outputs: []cell.OutputIntent{{
			Output: cell.CellOutput{
				Capacity: capacity,
				Lock:     lock,
			},
			Data: blob,
		}},
	}, reserved)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to deploy code: %w",
			err)
	}

	code := &DeployedCode{
		TxHash:         txHash,
		DataHash:       cell.ContentHash(blob),
		GovernanceHash: lock.Hash(),
		CellDep:        cell.NewCodeDep(txHash, 0),
		Input:          cell.NewCellInput(txHash, 0),
		Size:           len(blob),
		Capacity:       capacity,
		State:          StateDeployed,
	}
	reserved = reserved.With(code.Input)

	log.Infof("Deployed %d bytes of code with data hash %v in tx %v",
		code.Size, code.DataHash, txHash)

	err = g.journal(ctx, reserved, func(j Journal) error {
		return j.RecordDeployment(ctx, code)
	})
	if err != nil {
		return nil, reserved, err
	}

	return code, reserved, nil
}

// UDTTypeScript is the type script of the UDT run by code and governed by
// the lock with the given hash.
func UDTTypeScript(code *DeployedCode, governance cell.Hash) cell.Script {
	args := cell.MultiHash(governance.Bytes())

	return cell.Script{
		CodeHash: code.DataHash,
		HashType: cell.HashTypeData,
		Args:     args.Bytes(),
	}
}

// udtOutput returns a UDT cell intent holding exactly its occupied
// capacity.
func udtOutput(typeScript cell.Script, lock cell.Script,
	amount *big.Int) (cell.OutputIntent, error) {

	data, err := cell.EncodeUDTData(amount)
	if err != nil {
		return cell.OutputIntent{}, err
	}

	out := cell.CellOutput{
		Lock: lock,
		Type: &typeScript,
	}
	out.Capacity, err = cell.OccupiedCapacity(out, data)
	if err != nil {
		return cell.OutputIntent{}, err
	}

	return cell.OutputIntent{
		Output: out,
		Data:   data,
	}, nil
}

// IssueUDT issues amount tokens under our own governance.
func (g *Gardener) IssueUDT(ctx context.Context, code *DeployedCode,
	amount *big.Int, reserved udtwallet.ReservedSet) (*UDTCell,
	udtwallet.ReservedSet, error) {

	return g.IssueWithGovernance(
		ctx, code, code.GovernanceHash, amount, reserved,
	)
}

// IssueWithGovernance issues amount tokens governed by the lock with the
// given hash. Nothing is checked locally: if our inputs can't satisfy the
// governance lock, the ledger rejects the transaction with
// GovernanceMismatchCode.
func (g *Gardener) IssueWithGovernance(ctx context.Context,
	code *DeployedCode, governance cell.Hash, amount *big.Int,
	reserved udtwallet.ReservedSet) (*UDTCell, udtwallet.ReservedSet,
	error) {

	lock := g.cfg.Wallet.LockScript()
	typeScript := UDTTypeScript(code, governance)
	intent, err := udtOutput(typeScript, lock, amount)
	if err != nil {
		return nil, reserved, err
	}

	txHash, reserved, err := g.submit(ctx, &udtwallet.BuildRequest{
		Outputs:   []cell.OutputIntent{intent},
		ExtraDeps: []cell.CellDep{code.CellDep},
	}, reserved)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to issue udt: %w",
			err)
	}

	udt := &UDTCell{
		TxHash:     txHash,
		Input:      cell.NewCellInput(txHash, 0),
		TypeScript: typeScript,
		TypeHash:   typeScript.Hash(),
		Amount:     new(big.Int).Set(amount),
		Lock:       lock,
		CellDep:    code.CellDep,
		Capacity:   intent.Output.Capacity,
		State:      StateIssued,
	}
	reserved = reserved.With(udt.Input)

	log.Infof("Issued %v tokens of udt %v in tx %v", amount,
		udt.TypeHash, txHash)

	err = g.journal(ctx, reserved, func(j Journal) error {
		return j.RecordUDTCell(ctx, udt)
	})
	if err != nil {
		return nil, reserved, err
	}

	return udt, reserved, nil
}

// TransferUDT spends prev and creates a cell of the same token holding
// amount for recipient. No change cell is created: the caller decides the
// amount, and the token script decides whether it's valid.
func (g *Gardener) TransferUDT(ctx context.Context, prev *UDTCell,
	amount *big.Int, recipient cell.Script,
	reserved udtwallet.ReservedSet) (*UDTCell, udtwallet.ReservedSet,
	error) {

	lock := g.cfg.Wallet.LockScript()
	if !prev.Lock.Equal(lock) {
		return nil, reserved, fmt.Errorf("%w: udt cell %v",
			ErrForeignLock, prev.Input.PreviousOutput)
	}

	typeScript := prev.TypeScript.Copy()
	intent, err := udtOutput(typeScript, recipient, amount)
	if err != nil {
		return nil, reserved, err
	}

	txHash, reserved, err := g.submit(ctx, &udtwallet.BuildRequest{
		Outputs:     []cell.OutputIntent{intent},
		ExtraDeps:   []cell.CellDep{prev.CellDep},
		ExtraInputs: []cell.CellInput{prev.Input},
	}, reserved)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to transfer udt: %w",
			err)
	}

	udt := &UDTCell{
		TxHash:     txHash,
		Input:      cell.NewCellInput(txHash, 0),
		TypeScript: typeScript,
		TypeHash:   typeScript.Hash(),
		Amount:     new(big.Int).Set(amount),
		Lock:       recipient.Copy(),
		CellDep:    prev.CellDep,
		Capacity:   intent.Output.Capacity,
		State:      StateTransferred,
	}
	if recipient.Equal(lock) {
		reserved = reserved.With(udt.Input)
	}

	log.Infof("Transferred %v tokens of udt %v to lock %v in tx %v",
		amount, udt.TypeHash, recipient.Hash(), txHash)

	err = g.journal(ctx, reserved, func(j Journal) error {
		return j.RecordUDTCell(ctx, udt)
	})
	if err != nil {
		return nil, reserved, err
	}

	return udt, reserved, nil
}

// MintTypeIDCell creates a singleton cell run by the type-id code. The
// type-id args are derived from the first input of the transaction, so
// they're only filled in once the draft is assembled.
func (g *Gardener) MintTypeIDCell(ctx context.Context, code *DeployedCode,
	data []byte, reserved udtwallet.ReservedSet) (*TypeIDCell,
	udtwallet.ReservedSet, error) {

	lock := g.cfg.Wallet.LockScript()
	out := cell.CellOutput{
		Lock: lock,
		Type: &cell.Script{
			CodeHash: code.DataHash,
			HashType: cell.HashTypeData,
			Args:     make([]byte, typeIDArgsSize),
		},
	}
	capacity, err := cell.OccupiedCapacity(out, data)
	if err != nil {
		return nil, reserved, err
	}
	out.Capacity = capacity

	draft, err := g.cfg.Builder.Build(ctx, &udtwallet.BuildRequest{
		Outputs: []cell.OutputIntent{{
			Output:          out,
			Data:            data,
			PendingTypeArgs: true,
		}},
		ExtraDeps: []cell.CellDep{code.CellDep},
	}, reserved)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to mint type id "+
			"cell: %w", err)
	}

	consumed, err := draft.FirstInput()
	if err != nil {
		return nil, reserved, err
	}
	args := cell.TypeIDArgs(consumed)
	if err := draft.SetTypeArgs(0, args); err != nil {
		return nil, reserved, err
	}

	txHash, reserved, err := g.cfg.Wallet.SignAndSubmit(
		ctx, draft, reserved,
	)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to mint type id "+
			"cell: %w", err)
	}

	typeScript := out.Type.Copy()
	typeScript.Args = args

	typeID := &TypeIDCell{
		TxHash:           txHash,
		Input:            cell.NewCellInput(txHash, 0),
		TypeScript:       typeScript,
		TypeHash:         typeScript.Hash(),
		TypeIDArgs:       args,
		ConsumedOutPoint: consumed,
		CellDep:          code.CellDep,
		Data:             append([]byte(nil), data...),
		Capacity:         capacity,
		State:            StateMinted,
	}
	reserved = reserved.With(typeID.Input)

	log.Infof("Minted type id cell %v from %v in tx %v", typeID.TypeHash,
		consumed, txHash)

	err = g.journal(ctx, reserved, func(j Journal) error {
		return j.RecordTypeIDCell(ctx, typeID)
	})
	if err != nil {
		return nil, reserved, err
	}

	return typeID, reserved, nil
}

// UpdateTypeIDCell spends prev and recreates it with new data. The type
// script, and with it the identity of the cell, stays the same.
func (g *Gardener) UpdateTypeIDCell(ctx context.Context, prev *TypeIDCell,
	data []byte, reserved udtwallet.ReservedSet) (*TypeIDCell,
	udtwallet.ReservedSet, error) {

	lock := g.cfg.Wallet.LockScript()
	typeScript := prev.TypeScript.Copy()
	out := cell.CellOutput{
		Lock: lock,
		Type: &typeScript,
	}
	capacity, err := cell.OccupiedCapacity(out, data)
	if err != nil {
		return nil, reserved, err
	}
	out.Capacity = capacity

	txHash, reserved, err := g.submit(ctx, &udtwallet.BuildRequest{
		Outputs: []cell.OutputIntent{{
			Output: out,
			Data:   data,
		}},
		ExtraDeps:   []cell.CellDep{prev.CellDep},
		ExtraInputs: []cell.CellInput{prev.Input},
	}, reserved)
	if err != nil {
		return nil, reserved, fmt.Errorf("unable to update type id "+
			"cell: %w", err)
	}

	typeID := &TypeIDCell{
		TxHash:           txHash,
		Input:            cell.NewCellInput(txHash, 0),
		TypeScript:       typeScript,
		TypeHash:         typeScript.Hash(),
		TypeIDArgs:       append([]byte(nil), prev.TypeIDArgs...),
		ConsumedOutPoint: prev.ConsumedOutPoint,
		CellDep:          prev.CellDep,
		Data:             append([]byte(nil), data...),
		Capacity:         capacity,
		State:            StateUpdated,
	}
	reserved = reserved.With(typeID.Input)

	log.Infof("Updated type id cell %v in tx %v", typeID.TypeHash, txHash)

	err = g.journal(ctx, reserved, func(j Journal) error {
		return j.RecordTypeIDCell(ctx, typeID)
	})
	if err != nil {
		return nil, reserved, err
	}

	return typeID, reserved, nil
}
