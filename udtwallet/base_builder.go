package udtwallet

import (
	"context"
	"fmt"

	"github.com/cellforge/udtforge/cell"
)

// SafeBuilder builds base transactions out of plain capacity cells only,
// using a pluggable CoinSelector to pick them.
type SafeBuilder struct {
	// Selector picks the inputs. GreedySelector is used if nil.
	Selector CoinSelector
}

// A compile-time assertion to ensure SafeBuilder meets the BaseBuilder
// interface.
var _ BaseBuilder = (*SafeBuilder)(nil)

// NewSafeBuilder returns a SafeBuilder using the given selector.
func NewSafeBuilder(selector CoinSelector) *SafeBuilder {
	return &SafeBuilder{
		Selector: selector,
	}
}

// BuildBase selects inputs covering req.Required and returns a transaction
// paying req.Required - req.Fee to req.ToLock. What is left over goes back
// to req.FromLock in a change output, unless it's too small to make a cell
// of its own, in which case it is left to the miner.
func (s *SafeBuilder) BuildBase(_ context.Context,
	req *BaseRequest) (*cell.Transaction, error) {

	if req.Fee > req.Required {
		return nil, fmt.Errorf("fee %d exceeds required capacity %d",
			req.Fee, req.Required)
	}
	if len(req.Candidates) == 0 {
		return nil, ErrInputExhaustion
	}

	selector := s.Selector
	if selector == nil {
		selector = &GreedySelector{}
	}

	selected, err := selector.SelectInputs(req.Candidates, req.Required)
	if err != nil {
		return nil, err
	}
	total, err := totalCapacity(selected)
	if err != nil {
		return nil, err
	}

	tx := &cell.Transaction{
		CellDeps: append([]cell.CellDep(nil), req.StandardDeps...),
		Outputs: []cell.CellOutput{{
			Capacity: req.Required - req.Fee,
			Lock:     req.ToLock.Copy(),
		}},
		OutputsData: [][]byte{{}},
	}
	for _, c := range selected {
		tx.Inputs = append(tx.Inputs, c.AsInput())
		tx.Witnesses = append(tx.Witnesses, []byte{})
	}

	change := total - req.Required
	changeOutput := cell.CellOutput{
		Capacity: change,
		Lock:     req.FromLock.Copy(),
	}
	if cell.CheckOutputCapacity(changeOutput, nil) == nil {
		tx.Outputs = append(tx.Outputs, changeOutput)
		tx.OutputsData = append(tx.OutputsData, []byte{})
	} else if change > 0 {
		log.Debugf("Leaving %d shannons of dust change as fee", change)
	}

	return tx, nil
}
