package udtdb

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MapSQLError turns the driver errors the journal cares about into backend
// independent ones: a duplicate entry becomes ErrSqlUniqueConstraintViolation
// and a write that lost against a concurrent one becomes
// ErrSerializationError. Anything else is returned unchanged.
func MapSQLError(err error) error {
	var (
		sqliteErr *sqlite.Error
		pqErr     *pq.Error
	)
	switch {
	case err == nil:
		return nil

	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:

			return &ErrSqlUniqueConstraintViolation{DbError: err}

		case sqlite3.SQLITE_BUSY:
			return &ErrSerializationError{DbError: err}
		}

	case errors.As(err, &pqErr):
		switch pqErr.Code {
		case pgerrcode.UniqueViolation:
			return &ErrSqlUniqueConstraintViolation{DbError: err}

		case pgerrcode.SerializationFailure:
			return &ErrSerializationError{DbError: err}
		}
	}

	return err
}

// ErrSqlUniqueConstraintViolation means a journal entry with the same key
// was already recorded.
type ErrSqlUniqueConstraintViolation struct {
	DbError error
}

func (e *ErrSqlUniqueConstraintViolation) Error() string {
	return fmt.Sprintf("journal entry already recorded: %v", e.DbError)
}

func (e *ErrSqlUniqueConstraintViolation) Unwrap() error {
	return e.DbError
}

// ErrSerializationError means the db transaction conflicted with a
// concurrent one and may be retried.
type ErrSerializationError struct {
	DbError error
}

func (e *ErrSerializationError) Error() string {
	return fmt.Sprintf("db tx conflict: %v", e.DbError)
}

func (e *ErrSerializationError) Unwrap() error {
	return e.DbError
}
