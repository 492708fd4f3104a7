package qdb

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/go-qdb/qdb/internal/assembler"
	"github.com/go-qdb/qdb/internal/binder"
	"github.com/go-qdb/qdb/qlog"
	"github.com/go-qdb/qdb/qtrace"
	"github.com/go-qdb/qdb/typeconv"
)

// driverConn is the subset of *sql.DB and *sql.Tx that queryable needs;
// satisfied by both without qdb caring which one it's holding.
type driverConn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryable is the uniform surface both *Database and *Transaction
// implement. Both embed a *queryable helper rather than one inheriting
// from the other — composition, per the engine-adapter plugin design.
type Queryable interface {
	Select(ctx context.Context, target any, opts ...QueryOption) (*Rows, error)
	FetchAll(ctx context.Context, target any, opts ...QueryOption) ([]Row, error)
	FetchOne(ctx context.Context, target any, opts ...QueryOption) (Row, error)
	Insert(ctx context.Context, target any, values Values) (any, error)
	InsertMany(ctx context.Context, target any, values []Values) ([]any, error)
	Update(ctx context.Context, target any, values Values, where Where) (int64, error)
	Delete(ctx context.Context, target any, where Where) (int64, error)
	Execute(ctx context.Context, sql string, params ...any) (Result, error)
	ExecuteMany(ctx context.Context, sql string, paramSets [][]any) (Result, error)
	ExecuteScript(ctx context.Context, script string) error
	Quote(name string) string
	Count(ctx context.Context, target any, where Where) (int64, error)
	Chunk(ctx context.Context, target any, size int, opts []QueryOption, fn func([]Row) (bool, error)) error
}

type queryable struct {
	engine       *Engine
	conn         driverConn
	logger       qlog.Logger
	schemaPrefix string
	cache        *schemaCache // shared with the owning Database; nil in embedded-engine transactions and in tests that bypass Open
	poolDB       *sql.DB      // the Database's pool, used for schema introspection regardless of an in-flight transaction
}

func (q *queryable) dialect() assembler.Dialect { return q.engine.Adapter.Dialect() }

// maybeQuote wraps name in the dialect's identifier quotes when its
// casing or characters require it, leaving ordinary lowercase
// identifiers bare.
func (q *queryable) maybeQuote(name string) string {
	d := q.dialect()
	if d.NeedsQuoting != nil && d.NeedsQuoting(name) {
		return assembler.Quote(d, name)
	}
	return name
}

// resolveColumnName looks name up case-insensitively in the schema
// cache for table, returning the engine's actual column casing
// (quoted if that casing requires it) when a cache entry exists.
// Falls back to name unchanged when there is no cache (a transaction
// on the embedded engine) or the table's introspection failed or
// reported no columns.
func (q *queryable) resolveColumnName(ctx context.Context, table, name string) string {
	if q.cache == nil || name == "" {
		return name
	}
	cols := q.cache.columns(ctx, q.engine, q.poolDB, q.schemaPrefix, table)
	if sc, ok := resolveSchemaColumn(cols, name); ok {
		return q.maybeQuote(sc.Name)
	}
	return name
}

func (q *queryable) resolveColumns(ctx context.Context, table string, names []string) []string {
	if len(names) == 0 {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = q.resolveColumnName(ctx, table, n)
	}
	return out
}

func (q *queryable) resolveValues(ctx context.Context, table string, values Values) Values {
	if len(values) == 0 {
		return values
	}
	out := make(Values, len(values))
	for i, p := range values {
		out[i] = assembler.Pair{Column: q.resolveColumnName(ctx, table, p.Column), Value: p.Value}
	}
	return out
}

// resolveWhere rewrites the column name on every simple equality or
// comparison clause to the engine's actual casing. Raw/Expr clauses
// carry caller-supplied SQL verbatim and are left untouched.
func (q *queryable) resolveWhere(ctx context.Context, table string, where []assembler.Clause) []assembler.Clause {
	if len(where) == 0 {
		return where
	}
	out := make([]assembler.Clause, len(where))
	for i, c := range where {
		switch v := c.(type) {
		case assembler.EqClause:
			v.Column = q.resolveColumnName(ctx, table, v.Column)
			out[i] = v
		case assembler.OpClause:
			v.Column = q.resolveColumnName(ctx, table, v.Column)
			out[i] = v
		case assembler.InClause:
			v.Column = q.resolveColumnName(ctx, table, v.Column)
			out[i] = v
		default:
			out[i] = c
		}
	}
	return out
}

func resolveTable(target any) (string, reflect.Type, error) {
	if s, ok := target.(string); ok {
		if s == "" {
			return "", nil, badArgument("qdb: empty table name")
		}
		return s, nil, nil
	}
	t := reflect.TypeOf(target)
	if t == nil {
		return "", nil, badArgument("qdb: nil target")
	}
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	b, err := binder.Bind(t)
	if err != nil {
		return "", nil, badArgument("qdb: cannot resolve table for %v: %v", t, err)
	}
	return b.Table, t, nil
}

func defaultColumns(recordType reflect.Type) ([]string, error) {
	if recordType == nil {
		return nil, nil
	}
	b, err := binder.Bind(recordType)
	if err != nil {
		return nil, nil
	}
	cols := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = c.Name
	}
	return cols, nil
}

func buildCasts(values Values, where []assembler.Clause) map[string]string {
	casts := map[string]string{}
	for _, p := range values {
		if t, ok := typeconv.DeclaredTypeFor(p.Value); ok {
			casts[p.Column] = t
		}
	}
	for _, c := range where {
		switch v := c.(type) {
		case assembler.EqClause:
			if t, ok := typeconv.DeclaredTypeFor(v.Value); ok {
				casts[v.Column] = t
			}
		case assembler.OpClause:
			if t, ok := typeconv.DeclaredTypeFor(v.Operand); ok {
				casts[v.Column] = t
			}
		}
	}
	if len(casts) == 0 {
		return nil
	}
	return casts
}

func adaptValues(values Values) (Values, error) {
	out := make(Values, len(values))
	for i, p := range values {
		v, err := typeconv.Adapt(p.Value)
		if err != nil {
			return nil, badArgument("qdb: adapting column %q: %v", p.Column, err)
		}
		out[i] = assembler.Pair{Column: p.Column, Value: v}
	}
	return out, nil
}

func (q *queryable) query(ctx context.Context, sqlText string, params []any) (*sql.Rows, error) {
	q.logger.Debug("qdb.query", "sql", sqlText, "nparams", len(params), "engine", q.engine.Name)
	rows, err := q.conn.QueryContext(ctx, sqlText, params...)
	if err != nil {
		wrapped := q.engine.Adapter.ClassifyError(err)
		q.logger.Error("qdb.query failed", wrapped, "sql", sqlText)
		return nil, wrapErrWith(wrapped, sqlText, params)
	}
	return rows, nil
}

func (q *queryable) exec(ctx context.Context, sqlText string, params []any) (sql.Result, error) {
	q.logger.Debug("qdb.exec", "sql", sqlText, "nparams", len(params), "engine", q.engine.Name)
	res, err := q.conn.ExecContext(ctx, sqlText, params...)
	if err != nil {
		wrapped := q.engine.Adapter.ClassifyError(err)
		q.logger.Error("qdb.exec failed", wrapped, "sql", sqlText)
		return nil, wrapErrWith(wrapped, sqlText, params)
	}
	return res, nil
}

func wrapErrWith(classified error, sqlText string, params []any) error {
	if qe, ok := classified.(*Error); ok {
		qe.SQL = sqlText
		qe.Params = params
		return qe
	}
	return wrapDriverErr(ErrDriverFailure, sqlText, params, classified)
}

// scanRows materializes rows into Row values, running each cell through
// typeconv.Convert for its column's declared SQL type (from the schema
// cache) when one is known — so a plain FetchAll round-trips a
// registered type (e.g. JSON, NUMERIC) the same way a Structs-scanned
// destination does, not only when the caller hand-scans into a typed
// field.
func (q *queryable) scanRows(ctx context.Context, table string, rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapDriverErr(ErrDriverFailure, "", nil, err)
	}

	var declared map[string]string
	if q.cache != nil && table != "" {
		schemaCols := q.cache.columns(ctx, q.engine, q.poolDB, q.schemaPrefix, table)
		if schemaCols != nil {
			declared = make(map[string]string, len(cols))
			for _, c := range cols {
				if sc, ok := resolveSchemaColumn(schemaCols, c); ok {
					declared[c] = sc.DeclaredType
				}
			}
		}
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapDriverErr(ErrDriverFailure, "", nil, err)
		}
		for i, c := range cols {
			if dt, ok := declared[c]; ok {
				if converted, cerr := typeconv.Convert(dt, raw[i]); cerr == nil {
					raw[i] = converted
				}
			}
		}
		out = append(out, NewRow(append([]string(nil), cols...), raw))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverErr(ErrDriverFailure, "", nil, err)
	}
	return out, nil
}

func (q *queryable) Select(ctx context.Context, target any, opts ...QueryOption) (*Rows, error) {
	all, err := q.FetchAll(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	return newPreloadedRows(all), nil
}

func (q *queryable) FetchAll(ctx context.Context, target any, opts ...QueryOption) ([]Row, error) {
	ctx, end := qtrace.StartOperation(ctx, "select", q.engine.Name, "")
	table, recordType, err := resolveTable(target)
	if err != nil {
		end(err)
		return nil, err
	}

	qp := newQueryParams(opts)
	cols := qp.columns
	if len(cols) == 0 {
		if dc, derr := defaultColumns(recordType); derr == nil && len(dc) > 0 {
			cols = dc
		}
	}
	cols = q.resolveColumns(ctx, table, cols)
	where := q.resolveWhere(ctx, table, qp.where)

	args := assembler.Args{
		Table:   table,
		Columns: cols,
		Where:   where,
		Group:   qp.group,
		Order:   qp.order,
		Limit:   qp.limit,
		Casts:   buildCasts(nil, where),
	}

	sqlText, params, err := assembler.Assemble(assembler.OpSelect, q.dialect(), q.schemaPrefix, args)
	if err != nil {
		end(err)
		return nil, badArgument("%v", err)
	}

	if q.cache != nil {
		// Introspect before the query holds a connection: scanRows reads
		// the cache while rows are open, and an embedded engine's pool has
		// no second connection to introspect with.
		q.cache.columns(ctx, q.engine, q.poolDB, q.schemaPrefix, table)
	}

	rows, err := q.query(ctx, sqlText, params)
	if err != nil {
		end(err)
		return nil, err
	}
	defer rows.Close()

	result, err := q.scanRows(ctx, table, rows)
	end(err)
	return result, err
}

func (q *queryable) FetchOne(ctx context.Context, target any, opts ...QueryOption) (Row, error) {
	opts = append(opts, Page(1, -1))
	all, err := q.FetchAll(ctx, target, opts...)
	if err != nil {
		return Row{}, err
	}
	if len(all) == 0 {
		return Row{}, nil
	}
	return all[0], nil
}

func (q *queryable) Insert(ctx context.Context, target any, values Values) (any, error) {
	ctx, end := qtrace.StartOperation(ctx, "insert", q.engine.Name, "")
	table, recordType, err := resolveTable(target)
	if err != nil {
		end(err)
		return nil, err
	}

	adapted, err := adaptValues(values)
	if err != nil {
		end(err)
		return nil, err
	}
	adapted = q.resolveValues(ctx, table, adapted)

	pk := ""
	if recordType != nil {
		if b, berr := binder.Bind(recordType); berr == nil && len(b.Columns) > 0 {
			pk = b.Columns[0].Name
		}
	}
	pk = q.resolveColumnName(ctx, table, pk)

	args := assembler.Args{
		Table:      table,
		Values:     adapted,
		PrimaryKey: pk,
		Casts:      buildCasts(adapted, nil),
	}

	sqlText, params, err := assembler.Assemble(assembler.OpInsert, q.dialect(), q.schemaPrefix, args)
	if err != nil {
		end(err)
		return nil, badArgument("%v", err)
	}

	if q.dialect().SupportsReturning && pk != "" {
		rows, err := q.query(ctx, sqlText, params)
		if err != nil {
			end(err)
			return nil, err
		}
		defer rows.Close()
		var id any
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				end(err)
				return nil, wrapDriverErr(ErrDriverFailure, sqlText, params, err)
			}
		}
		end(nil)
		return id, nil
	}

	res, err := q.exec(ctx, sqlText, params)
	if err != nil {
		end(err)
		return nil, err
	}
	id, _ := q.engine.Adapter.LastInsertID(res)
	end(nil)
	return id, nil
}

func (q *queryable) InsertMany(ctx context.Context, target any, values []Values) ([]any, error) {
	ids := make([]any, 0, len(values))
	for _, v := range values {
		id, err := q.Insert(ctx, target, v)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (q *queryable) Update(ctx context.Context, target any, values Values, where Where) (int64, error) {
	ctx, end := qtrace.StartOperation(ctx, "update", q.engine.Name, "")
	table, _, err := resolveTable(target)
	if err != nil {
		end(err)
		return 0, err
	}

	adapted, err := adaptValues(values)
	if err != nil {
		end(err)
		return 0, err
	}
	adapted = q.resolveValues(ctx, table, adapted)
	where = q.resolveWhere(ctx, table, where)

	args := assembler.Args{
		Table:  table,
		Values: adapted,
		Where:  where,
		Casts:  buildCasts(adapted, where),
	}

	sqlText, params, err := assembler.Assemble(assembler.OpUpdate, q.dialect(), q.schemaPrefix, args)
	if err != nil {
		end(err)
		return 0, badArgument("%v", err)
	}

	res, err := q.exec(ctx, sqlText, params)
	if err != nil {
		end(err)
		return 0, err
	}
	n, err := res.RowsAffected()
	end(err)
	return n, err
}

func (q *queryable) Delete(ctx context.Context, target any, where Where) (int64, error) {
	ctx, end := qtrace.StartOperation(ctx, "delete", q.engine.Name, "")
	table, _, err := resolveTable(target)
	if err != nil {
		end(err)
		return 0, err
	}

	where = q.resolveWhere(ctx, table, where)

	args := assembler.Args{
		Table: table,
		Where: where,
		Casts: buildCasts(nil, where),
	}

	sqlText, params, err := assembler.Assemble(assembler.OpDelete, q.dialect(), q.schemaPrefix, args)
	if err != nil {
		end(err)
		return 0, badArgument("%v", err)
	}

	res, err := q.exec(ctx, sqlText, params)
	if err != nil {
		end(err)
		return 0, err
	}
	n, err := res.RowsAffected()
	end(err)
	return n, err
}

func (q *queryable) Execute(ctx context.Context, sqlText string, params ...any) (Result, error) {
	ctx, end := qtrace.StartOperation(ctx, "execute", q.engine.Name, "")
	res, err := q.exec(ctx, sqlText, params)
	if err != nil {
		end(err)
		return Result{}, err
	}
	n, _ := res.RowsAffected()
	id, _ := q.engine.Adapter.LastInsertID(res)
	end(nil)
	return Result{RowsAffected: n, LastInsertID: id}, nil
}

func (q *queryable) ExecuteMany(ctx context.Context, sqlText string, paramSets [][]any) (Result, error) {
	var total int64
	for _, params := range paramSets {
		res, err := q.Execute(ctx, sqlText, params...)
		total += res.RowsAffected
		if err != nil {
			return Result{RowsAffected: total}, err
		}
	}
	return Result{RowsAffected: total}, nil
}

func (q *queryable) ExecuteScript(ctx context.Context, script string) error {
	ctx, end := qtrace.StartOperation(ctx, "execute_script", q.engine.Name, "")
	_, err := q.exec(ctx, script, nil)
	// A script may have added, dropped, renamed, or retyped columns;
	// the cache can't tell which, so drop everything it knows.
	if q.cache != nil {
		q.cache.invalidate()
	}
	end(err)
	return err
}

func (q *queryable) Quote(name string) string {
	return assembler.Quote(q.dialect(), name)
}

// Count wraps a SELECT COUNT(*) using the same assembler path as
// FetchAll, mirroring the teacher's Model.Count.
func (q *queryable) Count(ctx context.Context, target any, where Where) (int64, error) {
	row, err := q.FetchOne(ctx, target, SelectColumns("COUNT(*)"), Filter(where...))
	if err != nil {
		return 0, err
	}
	return row.Int64()
}

// Chunk repeatedly pages target in fixed-size windows, invoking fn per
// page. fn returns (keepGoing, error); Chunk stops on a short page, a
// false keepGoing, or an error.
func (q *queryable) Chunk(ctx context.Context, target any, size int, opts []QueryOption, fn func([]Row) (bool, error)) error {
	if size <= 0 {
		return badArgument("qdb: Chunk size must be positive, got %d", size)
	}
	offset := 0
	for {
		pageOpts := append(append([]QueryOption(nil), opts...), Page(size, offset))
		page, err := q.FetchAll(ctx, target, pageOpts...)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		cont, err := fn(page)
		if err != nil {
			return err
		}
		if !cont || len(page) < size {
			return nil
		}
		offset += size
	}
}
