package dbx

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes we react to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Translate maps driver errors onto the common sentinels:
//
//	sql.ErrNoRows            -> common.ErrNotFound
//	unique_violation         -> common.ErrAlreadyExists (constraint name kept)
//	foreign_key_violation    -> common.ErrReferenceMissing (constraint name kept)
//	serialization / deadlock -> common.ErrTransient
//
// Anything else is wrapped as a generic db error. nil stays nil.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: common.ErrAlreadyExists}
		case pgForeignKeyViolation:
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: common.ErrReferenceMissing}
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s", common.ErrTransient, pgErr.Message)
		}
	}

	return fmt.Errorf("db error: %w", err)
}

// ConstraintError tells which constraint was violated.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (constraint %s)", e.Err, e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return e.Err }
