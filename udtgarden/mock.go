package udtgarden

import (
	"context"
	"errors"
	"sync"

	"github.com/cellforge/udtforge/udtwallet"
)

type MockJournal struct {
	sync.Mutex

	Deployments []*DeployedCode
	UDTCells    []*UDTCell
	TypeIDCells []*TypeIDCell
	Reserved    udtwallet.ReservedSet

	// FailWith, if set, is returned by every record call.
	FailWith error
}

func NewMockJournal() *MockJournal {
	return &MockJournal{}
}

// ErrMockJournal is a canned journal failure.
var ErrMockJournal = errors.New("mock journal failure")

func (m *MockJournal) RecordDeployment(_ context.Context,
	code *DeployedCode) error {

	m.Lock()
	defer m.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.Deployments = append(m.Deployments, code)

	return nil
}

func (m *MockJournal) RecordUDTCell(_ context.Context, udt *UDTCell) error {
	m.Lock()
	defer m.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.UDTCells = append(m.UDTCells, udt)

	return nil
}

func (m *MockJournal) RecordTypeIDCell(_ context.Context,
	typeID *TypeIDCell) error {

	m.Lock()
	defer m.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.TypeIDCells = append(m.TypeIDCells, typeID)

	return nil
}

func (m *MockJournal) RecordReserved(_ context.Context,
	reserved udtwallet.ReservedSet) error {

	m.Lock()
	defer m.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.Reserved = reserved

	return nil
}

var _ Journal = (*MockJournal)(nil)
