package rvndb

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MapSQLError attempts to interpret a given error as a database agnostic SQL
// error.
func MapSQLError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return parseSqliteError(sqliteErr)
	}

	// Return original error if it could not be classified as a database
	// specific error.
	return err
}

// parseSqliteError attempts to parse a sqlite error as a database agnostic
// SQL error.
func parseSqliteError(sqliteErr *sqlite.Error) error {
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:

		return &ErrSqlUniqueConstraintViolation{
			DbError: sqliteErr,
		}

	case sqlite3.SQLITE_BUSY:
		return &ErrDatabaseBusy{
			DbError: sqliteErr,
		}

	default:
		return fmt.Errorf("unknown sqlite error: %w", sqliteErr)
	}
}

// ErrSqlUniqueConstraintViolation is an error type which represents a database
// agnostic SQL unique constraint violation.
type ErrSqlUniqueConstraintViolation struct {
	DbError error
}

// Error returns the error message.
func (e ErrSqlUniqueConstraintViolation) Error() string {
	return fmt.Sprintf("sql unique constraint violation: %v", e.DbError)
}

// Unwrap returns the wrapped database error.
func (e ErrSqlUniqueConstraintViolation) Unwrap() error {
	return e.DbError
}

// ErrDatabaseBusy is returned when the database couldn't acquire a lock in
// time.
type ErrDatabaseBusy struct {
	DbError error
}

// Error returns the error message.
func (e ErrDatabaseBusy) Error() string {
	return fmt.Sprintf("database busy: %v", e.DbError)
}

// Unwrap returns the wrapped database error.
func (e ErrDatabaseBusy) Unwrap() error {
	return e.DbError
}

// IsUniqueConstraintViolation returns true if the error is a unique constraint
// violation.
func IsUniqueConstraintViolation(err error) bool {
	var e *ErrSqlUniqueConstraintViolation
	return errors.As(err, &e)
}
