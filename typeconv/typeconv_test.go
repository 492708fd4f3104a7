package typeconv

import (
	"database/sql/driver"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDecimalAdapter(t *testing.T) {
	d := decimal.NewFromFloat(19.99)
	v, err := Adapt(d)
	require.NoError(t, err)
	assert.Equal(t, "19.99", v)
}

func TestAdaptUnregisteredTypePassesThrough(t *testing.T) {
	v, err := Adapt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestAdaptNilPassesThrough(t *testing.T) {
	v, err := Adapt(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBuiltinDecimalConverterFromString(t *testing.T) {
	v, err := Convert("NUMERIC", "42.50")
	require.NoError(t, err)
	d, ok := v.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.NewFromFloat(42.50).Equal(d))
}

func TestBuiltinDecimalConverterFromBytes(t *testing.T) {
	v, err := Convert("DECIMAL", []byte("7.5"))
	require.NoError(t, err)
	d, ok := v.(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, decimal.NewFromFloat(7.5).Equal(d))
}

func TestConvertUnregisteredTypePassesThrough(t *testing.T) {
	v, err := Convert("VARCHAR", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestCastHintForDecimal(t *testing.T) {
	t_, ok := DeclaredTypeFor(decimal.NewFromInt(1))
	require.True(t, ok)
	assert.Equal(t, "NUMERIC", t_)
}

func TestCastHintAbsentForUnregisteredType(t *testing.T) {
	_, ok := DeclaredTypeFor(42)
	assert.False(t, ok)
}

func TestRegisterAdapterReplacesExisting(t *testing.T) {
	type widget struct{ N int }
	RegisterAdapter(widget{}, func(v any) (driver.Value, error) { return "first", nil })
	RegisterAdapter(widget{}, func(v any) (driver.Value, error) { return "second", nil })
	v, err := Adapt(widget{N: 1})
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestRowFactoryRoundTrip(t *testing.T) {
	RegisterRowFactory("widget", func() any { return &struct{ N int }{} })
	f, ok := RowFactoryFor("widget")
	require.True(t, ok)
	assert.NotNil(t, f())
}
