package binder

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userAccount struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	Email     string
	Ignored   string `db:"-"`
	password  string // unexported, must be skipped
}

func TestBindResolvesTableAndColumns(t *testing.T) {
	Reset()
	b, err := Bind(reflect.TypeOf(userAccount{}))
	require.NoError(t, err)
	assert.Equal(t, "user_account", b.Table)

	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "first_name", "email"}, names)
}

func TestBindAcceptsPointerType(t *testing.T) {
	Reset()
	b, err := Bind(reflect.TypeOf(&userAccount{}))
	require.NoError(t, err)
	assert.Equal(t, "user_account", b.Table)
}

func TestBindMemoizesResult(t *testing.T) {
	Reset()
	t1 := reflect.TypeOf(userAccount{})
	b1, err := Bind(t1)
	require.NoError(t, err)
	b2, err := Bind(t1)
	require.NoError(t, err)
	assert.Same(t, b1, b2)
}

func TestBindRejectsNonStruct(t *testing.T) {
	Reset()
	_, err := Bind(reflect.TypeOf(42))
	require.Error(t, err)
}

type product struct {
	SKU string `db:"sku"`
}

func (product) TableName() string { return "catalog_products" }

func TestBindUsesTableNameMethod(t *testing.T) {
	Reset()
	b, err := Bind(reflect.TypeOf(product{}))
	require.NoError(t, err)
	assert.Equal(t, "catalog_products", b.Table)
}

type base struct {
	CreatedAt string `db:"created_at"`
}

type withEmbedded struct {
	base
	Name string `db:"name"`
}

func TestBindFlattensAnonymousStruct(t *testing.T) {
	Reset()
	b, err := Bind(reflect.TypeOf(withEmbedded{}))
	require.NoError(t, err)
	names := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"created_at", "name"}, names)
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"ID":        "id",
		"FirstName": "first_name",
		"UserID":    "user_id",
		"Name":      "name",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), in)
	}
}
