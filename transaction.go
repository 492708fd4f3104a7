package qdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/go-qdb/qdb/internal/assembler"
)

// TxState is a Transaction's position in its lifecycle.
type TxState int

const (
	TxOpen TxState = iota
	TxCommitted
	TxRolledBack
	TxClosed
)

func (s TxState) String() string {
	switch s {
	case TxOpen:
		return "OPEN"
	case TxCommitted:
		return "COMMITTED"
	case TxRolledBack:
		return "ROLLED_BACK"
	case TxClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is a Queryable bound to one driver transaction. Commit and
// Rollback, when called directly, reopen a fresh driver transaction on
// the same scope so the handle stays usable for further operations;
// Database.Transact instead finalizes the scope once fn returns.
type Transaction struct {
	*queryable

	mu sync.Mutex

	db       *Database
	sqlTx    *sql.Tx
	params   *txParams
	state    TxState
	heldFair bool
	lazyUsed bool
}

// State reports the transaction's current lifecycle state.
func (t *Transaction) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) requireOpen() error {
	if t.state != TxOpen {
		return &Error{Kind: ErrNotOpen, Err: errNotOpenState(t.state)}
	}
	return nil
}

func errNotOpenState(s TxState) error {
	return notOpenStateErr{s}
}

type notOpenStateErr struct{ s TxState }

func (e notOpenStateErr) Error() string {
	return "transaction is " + e.s.String() + ", not OPEN"
}

// Commit commits the current driver transaction and opens a fresh one
// on the same scope, so the Transaction handle remains usable.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, true, true)
}

// Rollback rolls back the current driver transaction and opens a fresh
// one on the same scope.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, false, true)
}

// close finalizes the scope without reopening a new driver transaction,
// releasing the embedded fair lock if this scope held it. Used by
// Database.Transact once the caller's function has returned.
func (t *Transaction) close(ctx context.Context, commit bool) error {
	return t.finish(ctx, commit, false)
}

func (t *Transaction) finish(ctx context.Context, commit, reopen bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxOpen {
		return &Error{Kind: ErrNotOpen, Err: errNotOpenState(t.state)}
	}

	var err error
	if commit {
		err = t.sqlTx.Commit()
		t.state = TxCommitted
	} else {
		err = t.sqlTx.Rollback()
		t.state = TxRolledBack
	}
	if err != nil {
		t.releaseFair()
		return wrapDriverErr(ErrDriverFailure, "", nil, err)
	}

	if !reopen {
		t.releaseFair()
		t.state = TxClosed
		return nil
	}

	sqlTx, berr := t.db.sqlDB.BeginTx(ctx, nil)
	if berr != nil {
		t.releaseFair()
		return wrapDriverErr(ErrDriverFailure, "", nil, berr)
	}
	t.sqlTx = sqlTx
	t.queryable.conn = sqlTx
	t.state = TxOpen
	t.lazyUsed = false
	return nil
}

func (t *Transaction) releaseFair() {
	if t.heldFair {
		t.db.fair.Unlock()
		t.heldFair = false
	}
}

// Select overrides queryable.Select on a lazy-mode transaction to stream
// from a server-side cursor instead of materializing every row. A
// non-lazy transaction falls back to the normal preloaded path. Exactly
// one Select is permitted per lazy scope.
func (t *Transaction) Select(ctx context.Context, target any, opts ...QueryOption) (*Rows, error) {
	if !t.params.lazy {
		return t.queryable.Select(ctx, target, opts...)
	}

	t.mu.Lock()
	if t.lazyUsed {
		t.mu.Unlock()
		return nil, badArgument("qdb: only one Select is permitted per lazy transaction scope")
	}
	t.lazyUsed = true
	t.mu.Unlock()

	if err := t.requireOpen(); err != nil {
		return nil, err
	}

	table, recordType, err := resolveTable(target)
	if err != nil {
		return nil, err
	}
	qp := newQueryParams(opts)
	cols := qp.columns
	if len(cols) == 0 {
		if dc, _ := defaultColumns(recordType); len(dc) > 0 {
			cols = dc
		}
	}

	args := assembler.Args{
		Table:   table,
		Columns: cols,
		Where:   qp.where,
		Group:   qp.group,
		Order:   qp.order,
		Limit:   qp.limit,
	}
	sqlText, params, err := assembler.Assemble(assembler.OpSelect, t.dialect(), t.schemaPrefix, args)
	if err != nil {
		return nil, badArgument("%v", err)
	}

	cursor, err := t.engine.Adapter.NewCursor(ctx, t.sqlTx, sqlText, params, t.params.itersize)
	if err != nil {
		return nil, wrapDriverErr(ErrDriverFailure, sqlText, params, err)
	}

	return &Rows{cols: cols, cursor: cursor}, nil
}
