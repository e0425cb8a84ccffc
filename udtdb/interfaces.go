package udtdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cellforge/udtforge/udtdb/sqlc"
	"github.com/lightningnetwork/lnd/clock"
)

var (
	// DefaultStoreTimeout is the default timeout used for any interaction
	// with the storage/database.
	DefaultStoreTimeout = time.Second * 10

	// ErrRetriesExceeded is returned when a db transaction kept conflicting
	// with concurrent ones until it ran out of retries.
	ErrRetriesExceeded = errors.New("db tx retries exceeded")
)

const (
	// DefaultNumTxRetries is the default number of times we'll retry a
	// transaction if it fails with an error that permits transaction
	// repetition.
	DefaultNumTxRetries = 10

	// DefaultRetryDelay is the default delay between retries.
	DefaultRetryDelay = 50 * time.Millisecond
)

// TxOptions represents a set of options one can use to control what type of
// database transaction is created. Transaction can wither be read or write.
type TxOptions interface {
	// ReadOnly returns true if the transaction should be read only.
	ReadOnly() bool
}

// BatchedTx is a generic interface that represents the ability to execute
// several operations to a given storage interface in a single atomic
// transaction. Typically Q here will be some subset of the main sqlc.Querier
// interface allowing it to only depend on the routines it needs to implement
// any additional business logic.
type BatchedTx[Q any] interface {
	// ExecTx will execute the passed txBody, operating upon generic
	// parameter Q (usually a storage interface) in a single transaction.
	// The set of TxOptions are passed in in order to allow the caller to
	// specify if a transaction should be read-only.
	ExecTx(ctx context.Context, txOptions TxOptions,
		txBody func(Q) error) error
}

// QueryCreator is a generic function that's used to create a Querier, which is
// a type of interface that implements storage related methods from a database
// transaction. This will be used to instantiate an object callers can use to
// apply multiple modifications to an object interface in a single atomic
// transaction.
type QueryCreator[Q any] func(*sql.Tx) Q

// BatchedQuerier is a generic interface that allows callers to create a new
// database transaction based on an abstract type that implements the TxOptions
// interface.
type BatchedQuerier interface {
	// Querier is the underlying query source, this is in place so we can
	// pass a BatchedQuerier implementation directly into objects that
	// create a batched version of the normal methods they need.
	sqlc.Querier

	// BeginTx creates a new database transaction given the set of
	// transaction options.
	BeginTx(ctx context.Context, options TxOptions) (*sql.Tx, error)
}

// TransactionExecutor is a generic struct that abstracts away from the type of
// query a type needs to run under a database transaction, and also the set of
// options for that transaction. The QueryCreator is used to create a query
// given a database transaction created by the BatchedQuerier.
type TransactionExecutor[Query any] struct {
	BatchedQuerier

	createQuery QueryCreator[Query]

	numRetries int
	retryDelay time.Duration
}

// NewTransactionExecutor creates a new instance of a TransactionExecutor given
// a Querier query object and a concrete type for the type of transactions the
// Querier understands.
func NewTransactionExecutor[Querier any](db BatchedQuerier,
	createQuery QueryCreator[Querier]) *TransactionExecutor[Querier] {

	return &TransactionExecutor[Querier]{
		BatchedQuerier: db,
		createQuery:    createQuery,
		numRetries:     DefaultNumTxRetries,
		retryDelay:     DefaultRetryDelay,
	}
}

// ExecTx is a wrapper for txBody to abstract the creation and commit of a db
// transaction. The db transaction is embedded in a `*Queries` that txBody
// needs to use when executing each one of the queries that need to be applied
// atomically. Transactions that fail to serialize against concurrent ones are
// retried.
func (t *TransactionExecutor[Q]) ExecTx(ctx context.Context,
	txOptions TxOptions, txBody func(Q) error) error {

	for i := 0; i < t.numRetries; i++ {
		err := t.execTxOnce(ctx, txOptions, txBody)

		var serErr *ErrSerializationError
		if !errors.As(MapSQLError(err), &serErr) {
			return err
		}

		log.Debugf("Retrying transaction due to serialization "+
			"error, attempt %d of %d", i+1, t.numRetries)

		select {
		case <-time.After(t.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return ErrRetriesExceeded
}

func (t *TransactionExecutor[Q]) execTxOnce(ctx context.Context,
	txOptions TxOptions, txBody func(Q) error) error {

	// Create the db transaction.
	tx, err := t.BatchedQuerier.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	// Rollback is safe to call even if the tx is already closed, so if the
	// tx commits successfully, this is a no-op.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := txBody(t.createQuery(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// BaseDB is the base database struct that each implementation can embed to
// gain some common functionality.
type BaseDB struct {
	*sql.DB

	*sqlc.Queries
}

// BeginTx wraps the normal sql specific BeginTx method with the TxOptions
// interface. This interface is then mapped to the concrete sql tx options
// struct.
func (s *BaseDB) BeginTx(ctx context.Context, opts TxOptions) (*sql.Tx, error) {
	sqlOptions := sql.TxOptions{
		ReadOnly: opts.ReadOnly(),
	}
	return s.DB.BeginTx(ctx, &sqlOptions)
}

// DatabaseBackend is an interface that contains all methods our different
// database backends implement.
type DatabaseBackend interface {
	BatchedQuerier

	// WithTx returns a query set bound to the given database transaction.
	WithTx(tx *sql.Tx) *sqlc.Queries

	// Close closes the database.
	Close() error
}

// A compile-time assertion to ensure both stores implement the
// DatabaseBackend interface.
var (
	_ DatabaseBackend = (*SqliteStore)(nil)
	_ DatabaseBackend = (*PostgresStore)(nil)
)

// NewJournalFromBackend wraps the backend into a Journal.
func NewJournalFromBackend(db DatabaseBackend,
	clock clock.Clock) *Journal {

	journalDB := NewTransactionExecutor(
		db, func(tx *sql.Tx) JournalStore {
			return db.WithTx(tx)
		},
	)

	return NewJournal(journalDB, clock)
}
