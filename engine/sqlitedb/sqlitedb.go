// Package sqlitedb registers the embedded "sqlite" engine, backed by
// github.com/mattn/go-sqlite3. A single exclusive connection is opened
// per Database; callers append "?_txlock=exclusive" themselves if they
// want write transactions to block immediately rather than on first
// write, matching sqlite3's own documented DSN knobs.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	qdb "github.com/go-qdb/qdb"
	"github.com/go-qdb/qdb/internal/assembler"
)

func init() {
	qdb.RegisterEngine(&qdb.Engine{
		Name:     "sqlite",
		Embedded: true,
		Adapter:  adapter{},
	})
}

type adapter struct{}

func (adapter) Open(ctx context.Context, dsn string, cfg *qdb.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
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
		Name:               "sqlite",
		Placeholder:        assembler.Question,
		QuoteLeft:          '"',
		QuoteRight:         '"',
		NeedsQuoting:       needsQuoting,
		SupportsReturning:  false,
		SupportsBareOffset: true,
	}
}

func (adapter) LastInsertID(res sql.Result) (any, bool) {
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false
	}
	return id, true
}

func (adapter) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return &qdb.Error{Kind: qdb.ErrIntegrityFailure, Err: err}
	default:
		return &qdb.Error{Kind: qdb.ErrDriverFailure, Err: err}
	}
}

func (adapter) NewCursor(ctx context.Context, tx *sql.Tx, query string, args []any, itersize int) (qdb.CursorIterator, error) {
	return nil, &qdb.Error{Kind: qdb.ErrBadArgument, Err: errLazyUnsupported}
}

var errLazyUnsupported = lazyUnsupportedError{}

type lazyUnsupportedError struct{}

func (lazyUnsupportedError) Error() string {
	return "sqlitedb: lazy/server-side cursor mode is not available on the embedded engine"
}

// identRe matches the bare identifiers this adapter allows to be spliced
// directly into a PRAGMA statement, which sqlite cannot bind parameters
// into. Anything else is rejected rather than quoted, since sqlite's
// PRAGMA parser does not apply normal string-literal escaping to its
// schema-qualification syntax.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (adapter) SchemaColumns(ctx context.Context, db *sql.DB, schema, table string) ([]qdb.SchemaColumn, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("sqlitedb: invalid table name %q", table)
	}
	pragma := "PRAGMA table_info(" + table + ")"
	if schema != "" {
		if !identRe.MatchString(schema) {
			return nil, fmt.Errorf("sqlitedb: invalid schema name %q", schema)
		}
		pragma = "PRAGMA " + schema + ".table_info(" + table + ")"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []qdb.SchemaColumn
	for rows.Next() {
		var cid int
		var name, declType string
		var notNull int
		var dflt any
		var pk int
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out = append(out, qdb.SchemaColumn{Name: name, DeclaredType: strings.ToUpper(declType)})
	}
	return out, rows.Err()
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return true
		}
		if !isAlpha && !isDigit {
			return true
		}
	}
	return isReservedSQLite(strings.ToUpper(name))
}

var sqliteReserved = map[string]bool{
	"ORDER": true, "GROUP": true, "TABLE": true, "SELECT": true,
	"WHERE": true, "INDEX": true, "KEY": true, "PRIMARY": true,
}

func isReservedSQLite(upper string) bool { return sqliteReserved[upper] }
