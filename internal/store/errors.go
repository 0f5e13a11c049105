package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel error kinds, distinguished with errors.Is the same way the
// rest of the tree distinguishes its own conditions.
var (
	// ErrTripleConflict is returned when CreateStatements is asked to
	// set a different triple for a handle that already has one (HTTP
	// 409).
	ErrTripleConflict = errors.New("store: statement triple conflict")

	// ErrNotFound is returned when a lookup by handle/digest/path finds
	// no row (HTTP 404). It is distinct from an unresolved reference
	// inside a query, which is not an error at all — that just resolves
	// to the sentinel id and matches nothing.
	ErrNotFound = errors.New("store: not found")

	// ErrIntegrity wraps a constraint violation the repository doesn't
	// otherwise recognize (HTTP 500).
	ErrIntegrity = errors.New("store: integrity error")

	// ErrTransient wraps a connection-loss or deadlock condition that
	// may succeed on retry (HTTP 503).
	ErrTransient = errors.New("store: transient error")
)

// classifyPgError maps a raw pgx/pgconn error to one of the sentinel
// kinds above, wrapping it so the original error remains inspectable
// with errors.Unwrap.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return wrap(ErrTransient, err)
		case "23505", "23503", "23502", "23514": // unique, fk, not-null, check
			return wrap(ErrIntegrity, err)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return wrap(ErrNotFound, err)
	}

	if pgconn.Timeout(err) {
		return wrap(ErrTransient, err)
	}

	return err
}

func wrap(sentinel, cause error) error {
	return &classifiedError{sentinel: sentinel, cause: cause}
}

type classifiedError struct {
	sentinel error
	cause    error
}

func (e *classifiedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}
