package qdb

import (
	"context"
	"database/sql"

	"github.com/go-qdb/qdb/internal/assembler"
)

// CursorIterator walks a server-side streaming cursor in itersize-sized
// batches, used by lazy-mode Select on networked engines.
type CursorIterator interface {
	// Next fetches and scans the next row into dest, returning false
	// when the cursor is exhausted.
	Next(ctx context.Context, dest *[]any, cols *[]string) (bool, error)
	Close() error
}

// SchemaColumn is one column as reported by an engine's schema
// introspection: PRAGMA table_info for sqlite, information_schema.columns
// for the networked engines.
type SchemaColumn struct {
	Name         string // the column's actual stored casing
	DeclaredType string // upper-cased declared/native SQL type
}

// DriverAdapter is what an engine package (engine/sqlitedb,
// engine/pgdb, engine/mysqldb) implements to plug into the registry.
type DriverAdapter interface {
	Open(ctx context.Context, dsn string, cfg *Config) (*sql.DB, error)
	Dialect() assembler.Dialect
	LastInsertID(res sql.Result) (any, bool)
	ClassifyError(err error) error
	NewCursor(ctx context.Context, tx *sql.Tx, query string, args []any, itersize int) (CursorIterator, error)
	// SchemaColumns reports table's columns (schema may be "" for the
	// engine's default schema/search path), used to populate the schema
	// cache that drives case-insensitive column resolution and
	// declared-type-driven result conversion.
	SchemaColumns(ctx context.Context, db *sql.DB, schema, table string) ([]SchemaColumn, error)
}

// Engine is the registry entry for one backend: its dialect plus the
// adapter that opens connections and classifies driver errors.
type Engine struct {
	Name      string
	Embedded  bool // true for single-connection engines requiring exclusive transactions
	Adapter   DriverAdapter
}
