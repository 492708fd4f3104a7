package qdb

import (
	"errors"
	"fmt"
)

// The closed error taxonomy every Queryable failure is classified into.
// Use errors.Is against these sentinels; use errors.As against *Error
// to recover the offending SQL text and parameters.
var (
	ErrBadArgument     = errors.New("qdb: bad argument")
	ErrNotOpen         = errors.New("qdb: not open")
	ErrDriverFailure   = errors.New("qdb: driver failure")
	ErrIntegrityFailure = errors.New("qdb: integrity constraint violation")
)

// Error wraps a driver or assembler failure with the kind it was
// classified into plus the SQL text and parameters that produced it.
type Error struct {
	Kind   error
	SQL    string
	Params []any
	Err    error
}

func (e *Error) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v [sql=%q params=%d]", e.Kind, e.Err, e.SQL, len(e.Params))
}

// Is reports whether target is the sentinel this Error was classified
// under, so errors.Is(err, qdb.ErrIntegrityFailure) works through any
// number of wrapping layers. IntegrityFailure is a subclass of
// DriverFailure (spec §7): an integrity-kind Error also matches
// ErrDriverFailure, since every constraint violation is reported to the
// driver as a failure first and only then refined to a narrower kind.
func (e *Error) Is(target error) bool {
	if e.Kind == target {
		return true
	}
	return e.Kind == ErrIntegrityFailure && target == ErrDriverFailure
}

// Unwrap exposes the underlying driver error for errors.As.
func (e *Error) Unwrap() error { return e.Err }

func badArgument(format string, args ...any) *Error {
	return &Error{Kind: ErrBadArgument, Err: fmt.Errorf(format, args...)}
}

func notOpen() *Error {
	return &Error{Kind: ErrNotOpen, Err: errors.New("database or transaction is not open")}
}

func wrapDriverErr(kind error, sql string, params []any, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, SQL: sql, Params: params, Err: err}
}

// rollbackSentinel is a distinguished value, not a member of the error
// taxonomy: it signals "abort this Transact scope without propagating a
// failure" rather than classifying a driver failure.
type rollbackSentinel struct{}

func (*rollbackSentinel) Error() string { return "qdb: rollback requested" }

// Rollback, returned from a Transact callback, rolls back the
// transaction and causes Transact to return nil rather than this value.
var Rollback error = &rollbackSentinel{}
