package udtdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtdb/sqlc"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/lightningnetwork/lnd/clock"
)

type (
	// NewDeployment is a type alias for the params to insert a deployment.
	NewDeployment = sqlc.InsertDeploymentParams

	// NewUDTCell is a type alias for the params to upsert a UDT cell.
	NewUDTCell = sqlc.UpsertUDTCellParams

	// NewTypeIDCell is a type alias for the params to upsert a type-id
	// cell.
	NewTypeIDCell = sqlc.UpsertTypeIDCellParams

	// NewReservedOutPoint is a type alias for the params to insert a
	// reserved out point.
	NewReservedOutPoint = sqlc.InsertReservedOutPointParams
)

var (
	// ErrJournalEntryNotFound is returned when a journal lookup finds
	// nothing.
	ErrJournalEntryNotFound = errors.New("journal entry not found")
)

// JournalStore is the set of queries the Journal needs.
type JournalStore interface {
	// InsertDeployment inserts a deployed code cell.
	InsertDeployment(ctx context.Context, arg NewDeployment) (int32, error)

	// FetchDeploymentByDataHash returns the latest deployment of the code
	// with the given data hash.
	FetchDeploymentByDataHash(ctx context.Context,
		dataHash []byte) (sqlc.Deployment, error)

	// ListDeployments returns every deployment in insertion order.
	ListDeployments(ctx context.Context) ([]sqlc.Deployment, error)

	// UpsertUDTCell inserts a UDT cell or updates its state.
	UpsertUDTCell(ctx context.Context, arg NewUDTCell) (int32, error)

	// FetchUDTCellsByTypeHash returns the cells of a token.
	FetchUDTCellsByTypeHash(ctx context.Context,
		typeHash []byte) ([]sqlc.UdtCell, error)

	// UpsertTypeIDCell inserts a type-id cell or updates its state.
	UpsertTypeIDCell(ctx context.Context, arg NewTypeIDCell) (int32, error)

	// FetchTypeIDCellsByTypeHash returns every version of a type-id cell.
	FetchTypeIDCellsByTypeHash(ctx context.Context,
		typeHash []byte) ([]sqlc.TypeIDCell, error)

	// InsertReservedOutPoint adds an out point to the reserved set.
	InsertReservedOutPoint(ctx context.Context,
		arg NewReservedOutPoint) error

	// FetchReservedOutPoints returns the reserved set.
	FetchReservedOutPoints(ctx context.Context) ([]sqlc.ReservedOutpoint,
		error)
}

// JournalTxOptions defines the set of db txn options the JournalStore
// understands.
type JournalTxOptions struct {
	// readOnly governs if a read only transaction is needed or not.
	readOnly bool
}

// ReadOnly returns true if the transaction should be read only.
//
// NOTE: This implements the TxOptions interface.
func (j *JournalTxOptions) ReadOnly() bool {
	return j.readOnly
}

// NewJournalReadTx creates a new read transaction option set.
func NewJournalReadTx() JournalTxOptions {
	return JournalTxOptions{
		readOnly: true,
	}
}

// BatchedJournalStore is a version of the JournalStore that's capable of
// batched database operations.
type BatchedJournalStore interface {
	JournalStore

	BatchedTx[JournalStore]
}

// Journal is the database backed record of a run: every deployed code cell,
// UDT cell and type-id cell, and the reserved set.
type Journal struct {
	db BatchedJournalStore

	clock clock.Clock
}

// NewJournal creates a new Journal given an open BatchedJournalStore. The
// clock stamps every record.
func NewJournal(db BatchedJournalStore, clock clock.Clock) *Journal {
	return &Journal{
		db:    db,
		clock: clock,
	}
}

// A compile-time assertion to ensure Journal meets the udtgarden.Journal
// interface.
var _ udtgarden.Journal = (*Journal)(nil)

// RecordDeployment stores a deployed code cell.
func (j *Journal) RecordDeployment(ctx context.Context,
	code *udtgarden.DeployedCode) error {

	var writeTxOpts JournalTxOptions
	return j.db.ExecTx(ctx, &writeTxOpts, func(q JournalStore) error {
		_, err := q.InsertDeployment(ctx, NewDeployment{
			TxHash:         code.TxHash.Bytes(),
			DataHash:       code.DataHash.Bytes(),
			GovernanceHash: code.GovernanceHash.Bytes(),
			CodeSize:       int64(code.Size),
			Capacity:       int64(code.Capacity),
			State:          int16(code.State),
			CreatedAt:      j.clock.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("unable to insert deployment: %w",
				MapSQLError(err))
		}

		return nil
	})
}

// RecordUDTCell stores a UDT cell.
func (j *Journal) RecordUDTCell(ctx context.Context,
	udt *udtgarden.UDTCell) error {

	amount, err := cell.EncodeUDTData(udt.Amount)
	if err != nil {
		return err
	}

	var writeTxOpts JournalTxOptions
	return j.db.ExecTx(ctx, &writeTxOpts, func(q JournalStore) error {
		_, err := q.UpsertUDTCell(ctx, NewUDTCell{
			TxHash:      udt.Input.PreviousOutput.TxHash.Bytes(),
			OutputIndex: int32(udt.Input.PreviousOutput.Index),
			TypeScript:  udt.TypeScript.Serialize(),
			TypeHash:    udt.TypeHash.Bytes(),
			Amount:      amount,
			LockScript:  udt.Lock.Serialize(),
			DepTxHash:   udt.CellDep.OutPoint.TxHash.Bytes(),
			DepIndex:    int32(udt.CellDep.OutPoint.Index),
			Capacity:    int64(udt.Capacity),
			State:       int16(udt.State),
			CreatedAt:   j.clock.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("unable to upsert udt cell: %w",
				MapSQLError(err))
		}

		return nil
	})
}

// RecordTypeIDCell stores a type-id cell.
func (j *Journal) RecordTypeIDCell(ctx context.Context,
	typeID *udtgarden.TypeIDCell) error {

	var data []byte
	if len(typeID.Data) != 0 {
		data = typeID.Data
	}

	var writeTxOpts JournalTxOptions
	return j.db.ExecTx(ctx, &writeTxOpts, func(q JournalStore) error {
		_, err := q.UpsertTypeIDCell(ctx, NewTypeIDCell{
			TxHash:         typeID.Input.PreviousOutput.TxHash.Bytes(),
			OutputIndex:    int32(typeID.Input.PreviousOutput.Index),
			TypeScript:     typeID.TypeScript.Serialize(),
			TypeHash:       typeID.TypeHash.Bytes(),
			TypeIDArgs:     typeID.TypeIDArgs,
			ConsumedTxHash: typeID.ConsumedOutPoint.TxHash.Bytes(),
			ConsumedIndex:  int32(typeID.ConsumedOutPoint.Index),
			DepTxHash:      typeID.CellDep.OutPoint.TxHash.Bytes(),
			DepIndex:       int32(typeID.CellDep.OutPoint.Index),
			CellData:       data,
			Capacity:       int64(typeID.Capacity),
			State:          int16(typeID.State),
			CreatedAt:      j.clock.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("unable to upsert type id cell: %w",
				MapSQLError(err))
		}

		return nil
	})
}

// RecordReserved adds every out point of the reserved set to the journal.
// The stored set only ever grows.
func (j *Journal) RecordReserved(ctx context.Context,
	reserved udtwallet.ReservedSet) error {

	var writeTxOpts JournalTxOptions
	return j.db.ExecTx(ctx, &writeTxOpts, func(q JournalStore) error {
		for _, in := range reserved.Inputs() {
			err := q.InsertReservedOutPoint(ctx, NewReservedOutPoint{
				TxHash:      in.PreviousOutput.TxHash.Bytes(),
				OutputIndex: int32(in.PreviousOutput.Index),
				Since:       int64(in.Since),
			})
			if err != nil {
				return fmt.Errorf("unable to insert reserved "+
					"out point: %w", MapSQLError(err))
			}
		}

		return nil
	})
}

// hashFromBytes parses a hash column.
func hashFromBytes(b []byte) (cell.Hash, error) {
	var h cell.Hash
	if len(b) != cell.HashSize {
		return h, fmt.Errorf("invalid hash length %d", len(b))
	}
	copy(h[:], b)

	return h, nil
}

// parseDeployment maps a deployment row back.
func parseDeployment(row sqlc.Deployment) (*udtgarden.DeployedCode, error) {
	txHash, err := hashFromBytes(row.TxHash)
	if err != nil {
		return nil, err
	}
	dataHash, err := hashFromBytes(row.DataHash)
	if err != nil {
		return nil, err
	}
	govHash, err := hashFromBytes(row.GovernanceHash)
	if err != nil {
		return nil, err
	}

	return &udtgarden.DeployedCode{
		TxHash:         txHash,
		DataHash:       dataHash,
		GovernanceHash: govHash,
		CellDep:        cell.NewCodeDep(txHash, 0),
		Input:          cell.NewCellInput(txHash, 0),
		Size:           int(row.CodeSize),
		Capacity:       uint64(row.Capacity),
		State:          udtgarden.State(row.State),
	}, nil
}

// FetchDeployment returns the latest deployment of the code with the given
// data hash.
func (j *Journal) FetchDeployment(ctx context.Context,
	dataHash cell.Hash) (*udtgarden.DeployedCode, error) {

	var (
		code   *udtgarden.DeployedCode
		readTx = NewJournalReadTx()
	)
	err := j.db.ExecTx(ctx, &readTx, func(q JournalStore) error {
		row, err := q.FetchDeploymentByDataHash(ctx, dataHash.Bytes())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%w: deployment %v",
				ErrJournalEntryNotFound, dataHash)

		case err != nil:
			return err
		}

		code, err = parseDeployment(row)
		return err
	})
	if err != nil {
		return nil, err
	}

	return code, nil
}

// ListDeployments returns every deployment in the journal.
func (j *Journal) ListDeployments(
	ctx context.Context) ([]*udtgarden.DeployedCode, error) {

	var (
		codes  []*udtgarden.DeployedCode
		readTx = NewJournalReadTx()
	)
	err := j.db.ExecTx(ctx, &readTx, func(q JournalStore) error {
		rows, err := q.ListDeployments(ctx)
		if err != nil {
			return err
		}

		codes = make([]*udtgarden.DeployedCode, 0, len(rows))
		for _, row := range rows {
			code, err := parseDeployment(row)
			if err != nil {
				return err
			}
			codes = append(codes, code)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// parseUDTCell maps a UDT cell row back.
func parseUDTCell(row sqlc.UdtCell) (*udtgarden.UDTCell, error) {
	txHash, err := hashFromBytes(row.TxHash)
	if err != nil {
		return nil, err
	}
	depTxHash, err := hashFromBytes(row.DepTxHash)
	if err != nil {
		return nil, err
	}
	typeScript, err := cell.DecodeScript(row.TypeScript)
	if err != nil {
		return nil, err
	}
	lock, err := cell.DecodeScript(row.LockScript)
	if err != nil {
		return nil, err
	}
	amount, err := cell.DecodeUDTData(row.Amount)
	if err != nil {
		return nil, err
	}

	return &udtgarden.UDTCell{
		TxHash:     txHash,
		Input:      cell.NewCellInput(txHash, uint32(row.OutputIndex)),
		TypeScript: typeScript,
		TypeHash:   typeScript.Hash(),
		Amount:     amount,
		Lock:       lock,
		CellDep:    cell.NewCodeDep(depTxHash, uint32(row.DepIndex)),
		Capacity:   uint64(row.Capacity),
		State:      udtgarden.State(row.State),
	}, nil
}

// FetchUDTCells returns every recorded cell of the token with the given type
// hash, oldest first.
func (j *Journal) FetchUDTCells(ctx context.Context,
	typeHash cell.Hash) ([]*udtgarden.UDTCell, error) {

	var (
		cells  []*udtgarden.UDTCell
		readTx = NewJournalReadTx()
	)
	err := j.db.ExecTx(ctx, &readTx, func(q JournalStore) error {
		rows, err := q.FetchUDTCellsByTypeHash(ctx, typeHash.Bytes())
		if err != nil {
			return err
		}

		cells = make([]*udtgarden.UDTCell, 0, len(rows))
		for _, row := range rows {
			udt, err := parseUDTCell(row)
			if err != nil {
				return err
			}
			cells = append(cells, udt)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cells, nil
}

// parseTypeIDCell maps a type-id cell row back.
func parseTypeIDCell(row sqlc.TypeIDCell) (*udtgarden.TypeIDCell, error) {
	txHash, err := hashFromBytes(row.TxHash)
	if err != nil {
		return nil, err
	}
	consumedTxHash, err := hashFromBytes(row.ConsumedTxHash)
	if err != nil {
		return nil, err
	}
	depTxHash, err := hashFromBytes(row.DepTxHash)
	if err != nil {
		return nil, err
	}
	typeScript, err := cell.DecodeScript(row.TypeScript)
	if err != nil {
		return nil, err
	}

	return &udtgarden.TypeIDCell{
		TxHash:     txHash,
		Input:      cell.NewCellInput(txHash, uint32(row.OutputIndex)),
		TypeScript: typeScript,
		TypeHash:   typeScript.Hash(),
		TypeIDArgs: row.TypeIDArgs,
		ConsumedOutPoint: cell.OutPoint{
			TxHash: consumedTxHash,
			Index:  uint32(row.ConsumedIndex),
		},
		CellDep:  cell.NewCodeDep(depTxHash, uint32(row.DepIndex)),
		Data:     row.CellData,
		Capacity: uint64(row.Capacity),
		State:    udtgarden.State(row.State),
	}, nil
}

// FetchTypeIDCells returns every recorded version of the type-id cell with
// the given type hash, oldest first.
func (j *Journal) FetchTypeIDCells(ctx context.Context,
	typeHash cell.Hash) ([]*udtgarden.TypeIDCell, error) {

	var (
		cells  []*udtgarden.TypeIDCell
		readTx = NewJournalReadTx()
	)
	err := j.db.ExecTx(ctx, &readTx, func(q JournalStore) error {
		rows, err := q.FetchTypeIDCellsByTypeHash(
			ctx, typeHash.Bytes(),
		)
		if err != nil {
			return err
		}

		cells = make([]*udtgarden.TypeIDCell, 0, len(rows))
		for _, row := range rows {
			typeID, err := parseTypeIDCell(row)
			if err != nil {
				return err
			}
			cells = append(cells, typeID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cells, nil
}

// FetchReserved loads the reserved set recorded so far, so an interrupted
// run can resume without offering reserved cells as capacity.
func (j *Journal) FetchReserved(
	ctx context.Context) (udtwallet.ReservedSet, error) {

	var (
		inputs []cell.CellInput
		readTx = NewJournalReadTx()
	)
	err := j.db.ExecTx(ctx, &readTx, func(q JournalStore) error {
		rows, err := q.FetchReservedOutPoints(ctx)
		if err != nil {
			return err
		}

		inputs = make([]cell.CellInput, 0, len(rows))
		for _, row := range rows {
			txHash, err := hashFromBytes(row.TxHash)
			if err != nil {
				return err
			}

			inputs = append(inputs, cell.CellInput{
				PreviousOutput: cell.OutPoint{
					TxHash: txHash,
					Index:  uint32(row.OutputIndex),
				},
				Since: uint64(row.Since),
			})
		}

		return nil
	})
	if err != nil {
		return udtwallet.ReservedSet{}, err
	}

	return udtwallet.NewReservedSet(inputs...), nil
}
