package udtwallet

import (
	"context"
	"fmt"

	"github.com/cellforge/udtforge/cell"
	"github.com/davecgh/go-spew/spew"
)

// DefaultFee is the fee in shannons every assembled transaction pays on top
// of its outputs: 1000 CKBytes.
const DefaultFee uint64 = 1000 * cell.ShannonsPerCKByte

// witnessLockPlaceholderSize is the size of the zeroed lock placed in the
// first witness before signing, the size of a recoverable signature.
const witnessLockPlaceholderSize = 65

// AssemblerConfig holds the dependencies of the Assembler.
type AssemblerConfig struct {
	// Chain lists the live cells of the signer.
	Chain ChainBridge

	// Builder funds the base transaction.
	Builder BaseBuilder

	// Lock is the lock of the signer, which pays for every transaction.
	Lock cell.Script

	// StandardDeps are the deps the signer's lock needs.
	StandardDeps []cell.CellDep

	// Fee is the fee every transaction pays.
	Fee uint64
}

// BuildRequest describes a transaction to assemble.
type BuildRequest struct {
	// Outputs are the outputs the transaction must create, in order.
	Outputs []cell.OutputIntent

	// ExtraDeps are deps needed on top of the standard ones, such as
	// deployed code.
	ExtraDeps []cell.CellDep

	// ExtraInputs are cells the transaction must consume on top of the
	// ones selected to pay for it, such as a token cell being transferred.
	ExtraInputs []cell.CellInput
}

// Assembler turns output intents into funded draft transactions.
type Assembler struct {
	cfg *AssemblerConfig
}

// NewAssembler returns a new Assembler.
func NewAssembler(cfg *AssemblerConfig) *Assembler {
	return &Assembler{
		cfg: cfg,
	}
}

// requiredCapacity sums the capacity of the intents, each at least its
// minimum capacity, plus the fee.
func (a *Assembler) requiredCapacity(intents []cell.OutputIntent) (uint64,
	error) {

	required := a.cfg.Fee
	for _, intent := range intents {
		minimum, err := cell.MinimumCapacity(intent)
		if err != nil {
			return 0, err
		}

		want := intent.Output.Capacity
		if want < minimum {
			want = minimum
		}

		required, err = cell.Add(required, want)
		if err != nil {
			return 0, err
		}
	}

	return required, nil
}

// Build assembles a draft creating the requested outputs. The draft is
// funded with plain capacity cells of the signer that are neither reserved
// nor among req.ExtraInputs.
func (a *Assembler) Build(ctx context.Context, req *BuildRequest,
	reserved ReservedSet) (*Draft, error) {

	if len(req.Outputs) == 0 {
		return nil, fmt.Errorf("no outputs requested")
	}

	unspent, err := a.cfg.Chain.ListUnspent(ctx, a.cfg.Lock)
	if err != nil {
		return nil, fmt.Errorf("unable to list unspent cells: %w", err)
	}

	candidates := AvailableInputs(req.ExtraInputs, unspent, reserved)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d live cells, %d reserved",
			ErrInputExhaustion, len(unspent), reserved.Len())
	}

	required, err := a.requiredCapacity(req.Outputs)
	if err != nil {
		return nil, err
	}

	log.Debugf("Assembling tx with %d outputs, %d extra inputs, "+
		"required=%d shannons from %d candidates", len(req.Outputs),
		len(req.ExtraInputs), required, len(candidates))

	tx, err := a.cfg.Builder.BuildBase(ctx, &BaseRequest{
		FromLock:     a.cfg.Lock,
		ToLock:       a.cfg.Lock,
		Required:     required,
		Fee:          a.cfg.Fee,
		Candidates:   candidates,
		StandardDeps: a.cfg.StandardDeps,
	})
	if err != nil {
		return nil, err
	}
	if tx == nil || len(tx.Inputs) == 0 {
		return nil, fmt.Errorf("%w: base builder selected no inputs",
			ErrInputExhaustion)
	}

	tx.CellDeps = append(tx.CellDeps, req.ExtraDeps...)

	// The base outputs, change included, are replaced by the intents.
	tx.Outputs = make([]cell.CellOutput, 0, len(req.Outputs))
	tx.OutputsData = make([][]byte, 0, len(req.Outputs))
	var pending []int
	for i, intent := range req.Outputs {
		tx.Outputs = append(tx.Outputs, intent.Output.Copy())
		tx.OutputsData = append(
			tx.OutputsData, append([]byte{}, intent.Data...),
		)

		if intent.PendingTypeArgs {
			pending = append(pending, i)
			continue
		}

		err := cell.CheckOutputCapacity(intent.Output, intent.Data)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
	}

	tx.Inputs = append(tx.Inputs, req.ExtraInputs...)

	tx.Witnesses = make([][]byte, len(tx.Inputs))
	for i := range tx.Witnesses {
		tx.Witnesses[i] = []byte{}
	}
	tx.Witnesses[0] = cell.WitnessArgs{
		Lock: make([]byte, witnessLockPlaceholderSize),
	}.Serialize()

	log.Tracef("Assembled draft: %v", spew.Sdump(tx))

	return newDraft(tx, pending...), nil
}
