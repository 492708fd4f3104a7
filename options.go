package qdb

import "github.com/go-qdb/qdb/internal/assembler"

type queryParams struct {
	columns    []string
	where      []assembler.Clause
	group      []string
	order      []assembler.OrderTerm
	limit      *assembler.LimitArgs
	preferRead bool
}

// QueryOption configures a Select/FetchAll/FetchOne/Chunk call.
type QueryOption func(*queryParams)

// SelectColumns restricts the projection; the default is "*".
func SelectColumns(cols ...string) QueryOption {
	return func(q *queryParams) { q.columns = cols }
}

// Filter adds WHERE predicates, AND-combined with any already present.
func Filter(clauses ...assembler.Clause) QueryOption {
	return func(q *queryParams) { q.where = append(q.where, clauses...) }
}

// GroupBy adds a GROUP BY clause.
func GroupBy(cols ...string) QueryOption {
	return func(q *queryParams) { q.group = cols }
}

// OrderAsc appends an ascending ORDER BY term.
func OrderAsc(col string) QueryOption {
	return func(q *queryParams) { q.order = append(q.order, assembler.OrderTerm{Name: col}) }
}

// OrderDesc appends a descending ORDER BY term.
func OrderDesc(col string) QueryOption {
	return func(q *queryParams) { q.order = append(q.order, assembler.OrderTerm{Name: col, Desc: true}) }
}

// Page sets LIMIT count OFFSET offset. A negative count or offset omits
// that clause entirely, matching the assembler's "negative means
// unbounded" convention.
func Page(count, offset int) QueryOption {
	return func(q *queryParams) {
		l := &assembler.LimitArgs{}
		if count >= 0 {
			l.HasCount = true
			l.Count = count
		}
		if offset >= 0 {
			l.HasOffset = true
			l.Offset = offset
		}
		q.limit = l
	}
}

// Master records a preference for a primary/write connection. Preserved
// as a narrow echo of the teacher's master/slave link selection; this
// module manages a single pool and no operation reads the preference,
// so every query runs on that pool either way.
func Master() QueryOption {
	return func(q *queryParams) { q.preferRead = false }
}

// Slave records a preference for a replica connection, with the same
// single-pool caveat as Master.
func Slave() QueryOption {
	return func(q *queryParams) { q.preferRead = true }
}

func newQueryParams(opts []QueryOption) *queryParams {
	q := &queryParams{}
	for _, o := range opts {
		o(q)
	}
	return q
}

type txParams struct {
	exclusive bool
	lazy      bool
	itersize  int
	schema    string
}

// TxOption configures a Begin call.
type TxOption func(*txParams)

// WithExclusive overrides the embedded engine's default of holding its
// fair lock for the whole transaction scope. Passing false lets two
// embedded transactions interleave at the caller's own risk.
func WithExclusive(exclusive bool) TxOption {
	return func(t *txParams) { t.exclusive = exclusive }
}

// WithLazy puts the transaction in server-side streaming cursor mode
// (pgsql only; the sqlite and mysql adapters reject it): exactly one
// Select is permitted, returned
// as a *Rows that fetches itersize rows per round trip.
func WithLazy(lazy bool) TxOption {
	return func(t *txParams) { t.lazy = lazy }
}

// WithItersize sets the cursor fetch batch size for a lazy transaction;
// the default mirrors psycopg2's cursor.itersize of 2000.
func WithItersize(n int) TxOption {
	return func(t *txParams) { t.itersize = n }
}

// WithSchema prefixes unqualified table names with name for every
// operation in the transaction's scope.
func WithSchema(name string) TxOption {
	return func(t *txParams) { t.schema = name }
}

func newTxParams(opts []TxOption) *txParams {
	t := &txParams{exclusive: true, itersize: 2000}
	for _, o := range opts {
		o(t)
	}
	return t
}
