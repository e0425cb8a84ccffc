package udtdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cellforge/udtforge/udtdb/sqlc"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *TransactionExecutor[*sqlc.Queries] {
	db := NewTestDB(t)
	executor := NewTransactionExecutor[*sqlc.Queries](
		db, func(tx *sql.Tx) *sqlc.Queries {
			return db.WithTx(tx)
		},
	)
	executor.retryDelay = time.Millisecond

	return executor
}

// TestExecTxRetries checks which tx body failures are retried and how often.
func TestExecTxRetries(t *testing.T) {
	t.Parallel()

	conflict := &ErrSerializationError{DbError: errors.New("busy")}
	otherErr := errors.New("bad row")

	testCases := []struct {
		name      string
		failures  int
		failWith  error
		wantErr   error
		wantCalls int
	}{{
		name:      "no conflict",
		wantCalls: 1,
	}, {
		name:      "conflict once",
		failures:  1,
		failWith:  conflict,
		wantCalls: 2,
	}, {
		name:      "conflicts forever",
		failures:  DefaultNumTxRetries,
		failWith:  conflict,
		wantErr:   ErrRetriesExceeded,
		wantCalls: DefaultNumTxRetries,
	}, {
		name:      "other error",
		failures:  1,
		failWith:  otherErr,
		wantErr:   otherErr,
		wantCalls: 1,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			executor := newTestExecutor(t)
			writeTx := JournalTxOptions{}

			var calls int
			err := executor.ExecTx(
				context.Background(), &writeTx,
				func(*sqlc.Queries) error {
					calls++
					if calls <= tc.failures {
						return tc.failWith
					}

					return nil
				},
			)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.wantCalls, calls)
		})
	}
}

// TestExecTxRetryCancelled checks a cancelled context stops the retries.
func TestExecTxRetryCancelled(t *testing.T) {
	t.Parallel()

	executor := newTestExecutor(t)
	executor.retryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	writeTx := JournalTxOptions{}

	var calls int
	err := executor.ExecTx(ctx, &writeTx, func(*sqlc.Queries) error {
		calls++
		cancel()

		return &ErrSerializationError{DbError: errors.New("busy")}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestMapSQLError(t *testing.T) {
	t.Parallel()

	require.NoError(t, MapSQLError(nil))

	plain := errors.New("no rows")
	require.Equal(t, plain, MapSQLError(plain))

	unique := fmt.Errorf("insert: %w",
		&pq.Error{Code: pgerrcode.UniqueViolation})
	var uniqueErr *ErrSqlUniqueConstraintViolation
	require.ErrorAs(t, MapSQLError(unique), &uniqueErr)

	conflict := &pq.Error{Code: pgerrcode.SerializationFailure}
	mapped := MapSQLError(conflict)
	var serErr *ErrSerializationError
	require.ErrorAs(t, mapped, &serErr)

	var pqErr *pq.Error
	require.ErrorAs(t, mapped, &pqErr)
	require.Equal(t, conflict, pqErr)

	other := &pq.Error{Code: pgerrcode.UndefinedTable}
	require.Equal(t, error(other), MapSQLError(other))
}
