// Package mysqldb registers a second networked engine, "mysql", backed
// by github.com/go-sql-driver/mysql. It exists to exercise the engine
// registry's pluggability beyond the two backends named in the core
// specification: question-mark placeholders, backtick quoting, and
// LastInsertId instead of RETURNING.
package mysqldb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	qdb "github.com/go-qdb/qdb"
	"github.com/go-qdb/qdb/internal/assembler"
)

func init() {
	qdb.RegisterEngine(&qdb.Engine{
		Name:     "mysql",
		Embedded: false,
		Adapter:  adapter{},
	})
}

type adapter struct{}

func (adapter) Open(ctx context.Context, dsn string, cfg *qdb.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
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
		Name:               "mysql",
		Placeholder:        assembler.Question,
		QuoteLeft:          '`',
		QuoteRight:         '`',
		NeedsQuoting:       needsQuoting,
		SupportsReturning:  false,
		SupportsBareOffset: false,
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
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062, 1452, 1048, 1451:
			return &qdb.Error{Kind: qdb.ErrIntegrityFailure, Err: err}
		}
	}
	return &qdb.Error{Kind: qdb.ErrDriverFailure, Err: err}
}

func (adapter) NewCursor(ctx context.Context, tx *sql.Tx, query string, args []any, itersize int) (qdb.CursorIterator, error) {
	return nil, &qdb.Error{Kind: qdb.ErrBadArgument, Err: errLazyUnsupported}
}

var errLazyUnsupported = lazyUnsupportedError{}

type lazyUnsupportedError struct{}

func (lazyUnsupportedError) Error() string {
	return "mysqldb: server-side cursors require a stored procedure under go-sql-driver/mysql; lazy mode is not available on this engine"
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

func (adapter) SchemaColumns(ctx context.Context, db *sql.DB, schema, table string) ([]qdb.SchemaColumn, error) {
	var rows *sql.Rows
	var err error
	if schema == "" {
		rows, err = db.QueryContext(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?`,
			table)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = ? AND table_name = ?`,
			schema, table)
	}
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
