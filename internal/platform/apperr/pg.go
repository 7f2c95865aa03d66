package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Wrap classifies a persistence error for the named resource. Already classified
// errors pass through unchanged.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(resource)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &Error{Kind: KindConflict, Message: resource + " already exists", Err: err}
		case pgForeignKeyViolation:
			return &Error{Kind: KindValidation, Message: resource + " references a missing record", Err: err}
		case pgCheckViolation:
			return &Error{Kind: KindValidation, Message: resource + " violates a constraint", Err: err}
		}
	}
	return Internal(err)
}

// IsUniqueViolation reports whether err is a unique-constraint failure, optionally
// restricted to the given constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
