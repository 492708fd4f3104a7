package qdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/go-qdb/qdb/internal/assembler"
)

// mockAdapter wires a pre-built sqlmock *sql.DB through the DriverAdapter
// contract, letting the networked-dialect path be exercised with
// driver-agnostic expectations instead of a live Postgres/MySQL server.
type mockAdapter struct {
	db      *sql.DB
	columns map[string][]SchemaColumn
}

func (a mockAdapter) Open(ctx context.Context, dsn string, cfg *Config) (*sql.DB, error) {
	return a.db, nil
}

func (mockAdapter) Dialect() assembler.Dialect {
	return assembler.Dialect{
		Name:               "mockpg",
		Placeholder:        assembler.Dollar,
		QuoteLeft:          '"',
		QuoteRight:         '"',
		NeedsQuoting:       func(string) bool { return false },
		SupportsReturning:  true,
		SupportsBareOffset: true,
	}
}

func (mockAdapter) LastInsertID(sql.Result) (any, bool) { return nil, false }

func (mockAdapter) ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrDriverFailure, Err: err}
}

func (mockAdapter) NewCursor(ctx context.Context, tx *sql.Tx, query string, args []any, itersize int) (CursorIterator, error) {
	return nil, badArgument("qdb: mock engine does not support lazy cursors")
}

// SchemaColumns reports the columns an individual test stubbed into
// mockAdapter.columns; a nil map means "no columns known", the same as a
// real engine whose introspection query came back empty.
func (a mockAdapter) SchemaColumns(ctx context.Context, db *sql.DB, schema, table string) ([]SchemaColumn, error) {
	if a.columns == nil {
		return nil, nil
	}
	return a.columns[table], nil
}

func openMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	return openMockDatabaseWithColumns(t, nil)
}

func openMockDatabaseWithColumns(t *testing.T, columns map[string][]SchemaColumn) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	name := "mockpg-" + t.Name()
	RegisterEngine(&Engine{Name: name, Embedded: false, Adapter: mockAdapter{db: db, columns: columns}})

	d, err := Open(context.Background(), name, "mock")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, mock
}

func TestFetchAllWithSqlmockExpectation(t *testing.T) {
	d, mock := openMockDatabase(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "alice").
		AddRow(int64(2), "bob")
	mock.ExpectQuery(`SELECT \* FROM account WHERE active = \$1`).
		WithArgs(true).
		WillReturnRows(rows)

	got, err := d.FetchAll(context.Background(), "account", Filter(Eq("active", true)))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "alice", got[0].Get("name"))
	require.NoError(t, mock.ExpectationsWereMet())
}

type mockAccount struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func TestInsertWithSqlmockReturning(t *testing.T) {
	d, mock := openMockDatabase(t)

	mock.ExpectQuery(`INSERT INTO mock_account \(name\) VALUES \(\$1\) RETURNING id`).
		WithArgs("carol").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := d.Insert(context.Background(), &mockAccount{}, Values{{Column: "name", Value: "carol"}})
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestFetchAllConvertsJSONColumnWithoutStructScan proves scenario S6: a
// plain FetchAll (no Structs/Row.Scan into a typed field) round-trips a
// JSON-typed column, because scanRows drives typeconv.Convert off the
// schema cache's declared type rather than a destination Go type.
func TestFetchAllConvertsJSONColumnWithoutStructScan(t *testing.T) {
	d, mock := openMockDatabaseWithColumns(t, map[string][]SchemaColumn{
		"widget": {
			{Name: "id", DeclaredType: "INTEGER"},
			{Name: "attrs", DeclaredType: "JSONB"},
		},
	})

	mock.ExpectQuery(`SELECT \* FROM widget`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attrs"}).
			AddRow(int64(1), `{"a":[1,2]}`))

	got, err := d.FetchAll(context.Background(), "widget")
	require.NoError(t, err)
	require.Len(t, got, 1)

	attrs, ok := got[0].Get("attrs").(map[string]any)
	require.True(t, ok, "expected attrs to be decoded into a map, got %T", got[0].Get("attrs"))
	require.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, attrs)
	require.NoError(t, mock.ExpectationsWereMet())
}
