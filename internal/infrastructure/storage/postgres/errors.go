package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"stockbook/internal/core/apperror"
)

// PostgreSQL error codes of interest.
const (
	pgCodeUniqueViolation = "23505"
	pgCodeCheckViolation  = "23514"
	pgCodeLockNotAvail    = "55P03"
	pgCodeDeadlock        = "40P01"
	pgCodeSerialization   = "40001"
)

// TranslateError maps PostgreSQL failures onto the application error
// taxonomy. Lock timeouts and deadlocks become retryable errors so
// services can back off and re-run; unique violations become conflicts
// the caller must resolve.
func TranslateError(err error, resource string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgCodeLockNotAvail:
		return apperror.NewLockTimeout(resource).WithCause(err)
	case pgCodeDeadlock:
		return apperror.NewLockTimeout(resource).
			WithDetail("deadlock", true).
			WithCause(err)
	case pgCodeSerialization:
		return apperror.NewConflict("concurrent update, retry").WithCause(err)
	case pgCodeUniqueViolation:
		return apperror.NewConflict("duplicate " + resource).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	default:
		return err
	}
}

// IsUniqueViolation reports whether the error is a unique constraint
// violation, optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgCodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCheckViolation reports whether the error is a check constraint
// violation, optionally on a specific constraint.
func IsCheckViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgCodeCheckViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
