// Package pgdb registers the networked "pgsql" engine, backed by
// github.com/jackc/pgx/v5's database/sql stdlib adapter. It supports
// RETURNING on INSERT and server-side streaming cursors for lazy
// transaction scopes, modeled on psycopg2's named-cursor itersize
// behavior.
package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	qdb "github.com/go-qdb/qdb"
	"github.com/go-qdb/qdb/internal/assembler"
)

func init() {
	qdb.RegisterEngine(&qdb.Engine{
		Name:     "pgsql",
		Embedded: false,
		Adapter:  adapter{},
	})
}

type adapter struct{}

func (adapter) Open(ctx context.Context, dsn string, cfg *qdb.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (adapter) Dialect() assembler.Dialect {
	return assembler.Dialect{
		Name:               "pgsql",
		Placeholder:        assembler.Dollar,
		QuoteLeft:          '"',
		QuoteRight:         '"',
		NeedsQuoting:       needsQuoting,
		SupportsReturning:  true,
		SupportsBareOffset: true,
	}
}

func (adapter) LastInsertID(res sql.Result) (any, bool) {
	// Postgres has no native last-insert-id; callers needing one get it
	// from the RETURNING row in Queryable.Insert, not from sql.Result.
	return nil, false
}

func (adapter) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return &qdb.Error{Kind: qdb.ErrIntegrityFailure, Err: err}
	}
	return &qdb.Error{Kind: qdb.ErrDriverFailure, Err: err}
}

var cursorSeq int64

func (adapter) NewCursor(ctx context.Context, tx *sql.Tx, query string, args []any, itersize int) (qdb.CursorIterator, error) {
	if itersize <= 0 {
		itersize = 2000
	}
	name := fmt.Sprintf("qdb_cursor_%d", atomic.AddInt64(&cursorSeq, 1))

	declare := "DECLARE " + name + " NO SCROLL CURSOR FOR " + query
	if _, err := tx.ExecContext(ctx, declare, args...); err != nil {
		return nil, err
	}

	return &cursor{tx: tx, name: name, itersize: itersize}, nil
}

type cursor struct {
	tx        *sql.Tx
	name      string
	itersize  int
	buf       [][]any
	cols      []string
	idx       int
	exhausted bool
	closed    bool
}

func (c *cursor) Next(ctx context.Context, dest *[]any, cols *[]string) (bool, error) {
	if c.idx < len(c.buf) {
		*dest = c.buf[c.idx]
		*cols = c.cols
		c.idx++
		return true, nil
	}
	if c.exhausted {
		return false, nil
	}

	rows, err := c.tx.QueryContext(ctx, "FETCH FORWARD "+strconv.Itoa(c.itersize)+" FROM "+c.name)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	cns, err := rows.Columns()
	if err != nil {
		return false, err
	}
	c.cols = cns

	var batch [][]any
	for rows.Next() {
		raw := make([]any, len(cns))
		ptrs := make([]any, len(cns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return false, err
		}
		batch = append(batch, raw)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	if len(batch) < c.itersize {
		c.exhausted = true
	}
	if len(batch) == 0 {
		return false, nil
	}

	c.buf = batch
	c.idx = 0
	*dest = c.buf[0]
	*cols = c.cols
	c.idx = 1
	return true, nil
}

func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_, err := c.tx.ExecContext(context.Background(), "CLOSE "+c.name)
	return err
}

func (adapter) SchemaColumns(ctx context.Context, db *sql.DB, schema, table string) ([]qdb.SchemaColumn, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`,
		schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []qdb.SchemaColumn
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		out = append(out, qdb.SchemaColumn{Name: name, DeclaredType: strings.ToUpper(dataType)})
	}
	return out, rows.Err()
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return true
		}
		if !isAlpha && !isDigit {
			return true
		}
	}
	return strings.ToLower(name) != name
}
