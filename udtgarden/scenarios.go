package udtgarden

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/lightningnetwork/lnd/fn"
)

var (
	// ErrForeignIssuanceAccepted is returned by RunUDTScenario when the
	// ledger accepts tokens issued under a foreign governance hash.
	ErrForeignIssuanceAccepted = errors.New("issuance under foreign " +
		"governance was accepted")
)

// UDTScenario describes a full UDT run: deploy the code, issue tokens, then
// transfer some of them.
type UDTScenario struct {
	// Code is the UDT script.
	Code []byte

	// IssueAmount is the number of tokens issued.
	IssueAmount *big.Int

	// TransferAmount is the number of tokens sent to Recipient.
	TransferAmount *big.Int

	// Recipient receives the transfer.
	Recipient cell.Script

	// ForeignGovernance, if set, is used for a last issuance the ledger
	// must reject with GovernanceMismatchCode.
	ForeignGovernance fn.Option[cell.Hash]
}

// UDTScenarioResult is what a UDT run produced.
type UDTScenarioResult struct {
	Code *DeployedCode

	Issued *UDTCell

	Transferred *UDTCell

	// ForeignRejection is the rejection of the foreign issuance, if one
	// was attempted.
	ForeignRejection error
}

// RunUDTScenario runs the UDT workflows in order, each step spending what
// the previous one created.
func (g *Gardener) RunUDTScenario(ctx context.Context, s *UDTScenario,
	reserved udtwallet.ReservedSet) (*UDTScenarioResult,
	udtwallet.ReservedSet, error) {

	var (
		res UDTScenarioResult
		err error
	)

	res.Code, reserved, err = g.DeployCode(ctx, s.Code, reserved)
	if err != nil {
		return nil, reserved, err
	}

	res.Issued, reserved, err = g.IssueUDT(
		ctx, res.Code, s.IssueAmount, reserved,
	)
	if err != nil {
		return nil, reserved, err
	}

	res.Transferred, reserved, err = g.TransferUDT(
		ctx, res.Issued, s.TransferAmount, s.Recipient, reserved,
	)
	if err != nil {
		return nil, reserved, err
	}

	if s.ForeignGovernance.IsNone() {
		return &res, reserved, nil
	}

	foreign := s.ForeignGovernance.UnwrapOr(cell.Hash{})
	_, reserved, err = g.IssueWithGovernance(
		ctx, res.Code, foreign, s.IssueAmount, reserved,
	)
	switch {
	case err == nil:
		return nil, reserved, ErrForeignIssuanceAccepted

	case !IsGovernanceMismatch(err):
		return nil, reserved, fmt.Errorf("foreign issuance failed "+
			"unexpectedly: %w", err)
	}

	log.Infof("Foreign issuance rejected as expected: %v", err)
	res.ForeignRejection = err

	return &res, reserved, nil
}

// TypeIDScenario describes a full type-id run: deploy the code, mint a
// cell, then update it once per entry of Updates.
type TypeIDScenario struct {
	// Code is the type-id script.
	Code []byte

	// Data is the payload of the minted cell.
	Data []byte

	// Updates are the payloads written by each update, in order.
	Updates [][]byte
}

// TypeIDScenarioResult is what a type-id run produced.
type TypeIDScenarioResult struct {
	Code *DeployedCode

	Minted *TypeIDCell

	Updates []*TypeIDCell
}

// RunTypeIDScenario runs the type-id workflows in order.
func (g *Gardener) RunTypeIDScenario(ctx context.Context, s *TypeIDScenario,
	reserved udtwallet.ReservedSet) (*TypeIDScenarioResult,
	udtwallet.ReservedSet, error) {

	var (
		res TypeIDScenarioResult
		err error
	)

	res.Code, reserved, err = g.DeployCode(ctx, s.Code, reserved)
	if err != nil {
		return nil, reserved, err
	}

	res.Minted, reserved, err = g.MintTypeIDCell(
		ctx, res.Code, s.Data, reserved,
	)
	if err != nil {
		return nil, reserved, err
	}

	prev := res.Minted
	for i, data := range s.Updates {
		prev, reserved, err = g.UpdateTypeIDCell(
			ctx, prev, data, reserved,
		)
		if err != nil {
			return nil, reserved, fmt.Errorf("update %d: %w", i, err)
		}
		res.Updates = append(res.Updates, prev)
	}

	return &res, reserved, nil
}
