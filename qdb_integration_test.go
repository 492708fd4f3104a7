package qdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	qdb "github.com/go-qdb/qdb"
	_ "github.com/go-qdb/qdb/engine/sqlitedb"
)

type account struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Balance int64  `db:"balance"`
}

func openTestDB(t *testing.T) *qdb.Database {
	t.Helper()
	ctx := context.Background()
	db, err := qdb.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Execute(ctx, `CREATE TABLE account (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		balance INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	return db
}

func TestInsertFetchUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.Insert(ctx, "account", qdb.Values{
		{Column: "name", Value: "alice"},
		{Column: "balance", Value: 100},
	})
	require.NoError(t, err)
	require.NotNil(t, id)

	rows, err := db.FetchAll(ctx, "account", qdb.Filter(qdb.Eq("name", "alice")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "alice", rows[0].Get("name"))

	affected, err := db.Update(ctx, "account", qdb.Values{{Column: "balance", Value: 150}},
		qdb.Where{qdb.Eq("name", "alice")})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	row, err := db.FetchOne(ctx, "account", qdb.Filter(qdb.Eq("name", "alice")))
	require.NoError(t, err)
	require.EqualValues(t, 150, row.Get("balance"))

	count, err := db.Count(ctx, "account", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	deleted, err := db.Delete(ctx, "account", qdb.Where{qdb.Eq("name", "alice")})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestTransactCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Transact(ctx, func(tx *qdb.Transaction) error {
		_, err := tx.Insert(ctx, "account", qdb.Values{
			{Column: "name", Value: "bob"},
			{Column: "balance", Value: 10},
		})
		return err
	})
	require.NoError(t, err)

	count, err := db.Count(ctx, "account", qdb.Where{qdb.Eq("name", "bob")})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestTransactRollsBackOnRollbackSentinel(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Transact(ctx, func(tx *qdb.Transaction) error {
		if _, err := tx.Insert(ctx, "account", qdb.Values{
			{Column: "name", Value: "carol"},
			{Column: "balance", Value: 5},
		}); err != nil {
			return err
		}
		return qdb.Rollback
	})
	require.NoError(t, err)

	count, err := db.Count(ctx, "account", qdb.Where{qdb.Eq("name", "carol")})
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestTransactRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Transact(ctx, func(tx *qdb.Transaction) error {
		if _, err := tx.Insert(ctx, "account", qdb.Values{
			{Column: "name", Value: "dave"},
			{Column: "balance", Value: 5},
		}); err != nil {
			return err
		}
		return errUnrelatedFailure
	})
	require.Error(t, err)

	count, cerr := db.Count(ctx, "account", qdb.Where{qdb.Eq("name", "dave")})
	require.NoError(t, cerr)
	require.EqualValues(t, 0, count)
}

var errUnrelatedFailure = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestChunkIteratesInPages(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		_, err := db.Insert(ctx, "account", qdb.Values{
			{Column: "name", Value: "user"},
			{Column: "balance", Value: i},
		})
		require.NoError(t, err)
	}

	var seen int
	err := db.Chunk(ctx, "account", 2, []qdb.QueryOption{qdb.OrderAsc("balance")}, func(page []qdb.Row) (bool, error) {
		seen += len(page)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, seen)
}

func TestQuoteIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.Equal(t, `"account"`, db.Quote("account"))
	require.Equal(t, `"account"`, db.Quote(`"account"`))
}
