package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoRecords is returned when the sensit table has no rows.
	ErrNoRecords = errors.New("no sensor records")
	// ErrQueryTimeout is returned when the warehouse does not answer within the query timeout.
	ErrQueryTimeout = errors.New("warehouse query timeout")
)

// QueryError reports a failed warehouse operation. Every error returned by a
// SensitRepository is a *QueryError.
type QueryError struct {
	Backend string
	Op      string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s warehouse: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func newQueryError(ctx context.Context, backend, op string, err error) *QueryError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrQueryTimeout, err)
	}
	return &QueryError{Backend: backend, Op: op, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoRecords):
		return "empty"
	case errors.Is(err, ErrQueryTimeout):
		return "timeout"
	default:
		return "error"
	}
}
