package qdb

import (
	"context"
	"fmt"

	"github.com/go-qdb/qdb/internal/assembler"
)

// Pair and Values re-export the assembler's ordered column/value
// vocabulary for caller ergonomics.
type Pair = assembler.Pair
type Values = assembler.Values

// Where is an ordered, AND-combined sequence of WHERE predicates built
// with Eq, Cmp, In, NotIn, RawWhere and ExprWhere.
type Where = []assembler.Clause

// Eq builds a "column = value" clause ("column IS NULL" when value is nil).
func Eq(column string, value any) assembler.Clause {
	return assembler.EqClause{Column: column, Value: value}
}

// Cmp builds a "column <op> value" clause for op in
// <, <=, >, >=, =, !=, <>, LIKE, ILIKE, IS, IS NOT.
func Cmp(column, op string, value any) assembler.Clause {
	return assembler.OpClause{Column: column, Operator: op, Operand: value}
}

// In builds a "column IN (...)" clause; an empty values list renders
// "column IN (NULL)" rather than an empty, invalid IN-list.
func In(column string, values ...any) assembler.Clause {
	return assembler.InClause{Column: column, Values: values}
}

// NotIn builds a "column NOT IN (...)" clause, with the same empty-list
// handling as In.
func NotIn(column string, values ...any) assembler.Clause {
	return assembler.InClause{Column: column, Values: values, Not: true}
}

// RawWhere splices raw SQL containing '?' markers verbatim into the
// WHERE clause list, with its own parameters.
func RawWhere(sql string, params ...any) assembler.Clause {
	return assembler.RawClause{SQL: sql, Params: params}
}

// ExprWhere is like RawWhere but wrapped in parentheses, for
// caller-supplied boolean sub-expressions.
func ExprWhere(sql string, params ...any) assembler.Clause {
	return assembler.ExprClause{SQL: sql, Params: params}
}

// Row is one result row, preserving column order the way the underlying
// driver returned it.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from parallel column/value slices.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the row's column names in result order.
func (r Row) Columns() []string { return r.columns }

// Get returns the value of column name, or nil if absent.
func (r Row) Get(name string) any {
	for i, c := range r.columns {
		if c == name {
			return r.values[i]
		}
	}
	return nil
}

// Map materializes the row as a map, losing column order.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// Value returns the value of the row's sole column, for single-column
// query results. Returns an error if the row has more than one column.
func (r Row) Value() (any, error) {
	if len(r.values) != 1 {
		return nil, badArgument("qdb: Value() requires exactly one column, got %d", len(r.values))
	}
	return r.values[0], nil
}

// Int64 is a convenience accessor built on Value, for COUNT(*)-style
// single-column, single-row queries.
func (r Row) Int64() (int64, error) {
	v, err := r.Value()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, badArgument("qdb: Int64() on non-integer value %T", v)
	}
}

func (r Row) String() string {
	return fmt.Sprintf("Row%v", r.Map())
}

// Result reports the effect of Execute/Insert/Update/Delete.
type Result struct {
	RowsAffected int64
	LastInsertID any // nil if the engine/statement has none
}

// Rows is a streamed query result; used by the lazy cursor path. Next
// advances to the following row, returning false when exhausted.
type Rows struct {
	cols      []string
	cursor    CursorIterator
	preloaded []Row
	idx       int
	done      bool
	err       error
	row       Row
}

// newPreloadedRows wraps an already-fetched []Row as a *Rows, for
// non-lazy Select calls that have no server-side cursor to stream from.
func newPreloadedRows(rows []Row) *Rows {
	var cols []string
	if len(rows) > 0 {
		cols = rows[0].Columns()
	}
	return &Rows{cols: cols, preloaded: rows}
}

// Columns returns the result set's column names.
func (r *Rows) Columns() []string { return r.cols }

// Err returns the first error encountered by Next, if any.
func (r *Rows) Err() error { return r.err }

// Row returns the row most recently fetched by Next.
func (r *Rows) Row() Row { return r.row }

// Close releases the underlying cursor, if any.
func (r *Rows) Close() error {
	if r.cursor != nil {
		return r.cursor.Close()
	}
	return nil
}

// Next fetches the following batch element, advancing Row(). It returns
// false once the cursor is exhausted or an error has occurred; check
// Err() to distinguish the two.
func (r *Rows) Next(ctx context.Context) bool {
	if r.preloaded != nil || r.cursor == nil {
		if r.idx >= len(r.preloaded) {
			return false
		}
		r.row = r.preloaded[r.idx]
		r.idx++
		return true
	}
	if r.done {
		return false
	}
	var values []any
	var cols []string
	ok, err := r.cursor.Next(ctx, &values, &cols)
	if err != nil {
		r.err = err
		r.done = true
		return false
	}
	if !ok {
		r.done = true
		return false
	}
	if len(cols) > 0 {
		r.cols = cols
	}
	r.row = NewRow(r.cols, values)
	return true
}
