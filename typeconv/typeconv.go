// Package typeconv holds the process-wide type registry: adapters that
// convert Go values into driver-safe values on the way out, and
// converters that turn a scanned column back into a richer Go value on
// the way in. The registry mirrors the engine registry in the root
// package (driverMap-style, guarded by a single mutex) and is seeded
// with a decimal.Decimal adapter/converter pair and a JSON/JSONB pair
// for map/slice values, covering the two built-in examples referenced
// throughout the documentation.
package typeconv

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/shopspring/decimal"
)

// Adapter converts a Go value of a host type into a value database/sql
// can pass to a driver (string, []byte, int64, float64, bool, time.Time,
// or nil).
type Adapter func(value any) (driver.Value, error)

// Converter turns a value scanned out of a driver (typically []byte or
// string for a textual wire format) back into the declared Go type.
type Converter func(raw any) (any, error)

// RowFactory builds a fresh value for a registered name. The registry
// only stores and returns factories (RowFactoryFor); query results are
// not materialized through them.
type RowFactory func() any

var (
	mu          sync.Mutex
	adapters    = map[reflect.Type]Adapter{}
	converters  = map[string]Converter{}
	rowFactories = map[string]RowFactory{}
	castHints   = map[reflect.Type]string{}
)

func init() {
	RegisterAdapter(decimal.Decimal{}, func(value any) (driver.Value, error) {
		d, ok := value.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("typeconv: expected decimal.Decimal, got %T", value)
		}
		return d.String(), nil
	})
	RegisterConverter("NUMERIC", decimalConverter)
	RegisterConverter("DECIMAL", decimalConverter)
	RegisterCastHint(decimal.Decimal{}, "NUMERIC")

	RegisterAdapter(map[string]any{}, jsonAdapter)
	RegisterAdapter([]any{}, jsonAdapter)
	RegisterConverter("JSON", jsonConverter)
	RegisterConverter("JSONB", jsonConverter)
	RegisterCastHint(map[string]any{}, "JSONB")
	RegisterCastHint([]any{}, "JSONB")
}

func jsonAdapter(value any) (driver.Value, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("typeconv: marshaling %T to JSON: %w", value, err)
	}
	return string(b), nil
}

func jsonConverter(raw any) (any, error) {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, fmt.Errorf("typeconv: cannot convert %T to JSON", raw)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("typeconv: unmarshaling JSON: %w", err)
	}
	return out, nil
}

// RegisterCastHint records that values of sample's type should be bound
// with an explicit "::<declaredType>" cast on engines using $N
// placeholders, so the server coerces the adapted textual value back
// into its native type.
func RegisterCastHint(sample any, declaredType string) {
	mu.Lock()
	defer mu.Unlock()
	castHints[reflect.TypeOf(sample)] = declaredType
}

// DeclaredTypeFor returns the cast hint registered for value's type, if
// any.
func DeclaredTypeFor(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	mu.Lock()
	defer mu.Unlock()
	t, ok := castHints[reflect.TypeOf(value)]
	return t, ok
}

func decimalConverter(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Decimal{}, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return nil, fmt.Errorf("typeconv: cannot convert %T to decimal.Decimal", raw)
	}
}

// RegisterAdapter installs an Adapter for the host type of sample. A
// second registration for the same type replaces the first.
func RegisterAdapter(sample any, a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	adapters[reflect.TypeOf(sample)] = a
}

// AdapterFor returns the Adapter registered for t, if any.
func AdapterFor(t reflect.Type) (Adapter, bool) {
	mu.Lock()
	defer mu.Unlock()
	a, ok := adapters[t]
	return a, ok
}

// Adapt converts value using its registered Adapter, or returns it
// unchanged when no Adapter is registered for its type.
func Adapt(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	a, ok := AdapterFor(reflect.TypeOf(value))
	if !ok {
		return value, nil
	}
	return a(value)
}

// RegisterConverter installs a Converter for a declared SQL type name
// (case-sensitive, typically upper-cased: "NUMERIC", "JSONB", ...).
func RegisterConverter(declaredType string, c Converter) {
	mu.Lock()
	defer mu.Unlock()
	converters[declaredType] = c
}

// ConverterFor returns the Converter registered for declaredType, if any.
func ConverterFor(declaredType string) (Converter, bool) {
	mu.Lock()
	defer mu.Unlock()
	c, ok := converters[declaredType]
	return c, ok
}

// Convert applies the Converter registered for declaredType to raw, or
// returns raw unchanged when no Converter is registered.
func Convert(declaredType string, raw any) (any, error) {
	c, ok := ConverterFor(declaredType)
	if !ok {
		return raw, nil
	}
	return c(raw)
}

// ConvertForType applies the Converter registered for t's cast hint, if
// t has one. Used by the object binder to convert a scanned column into
// a destination struct field's type without a live schema cache: the
// destination field's Go type tells us which declared SQL type it
// corresponds to.
func ConvertForType(t reflect.Type, raw any) (any, bool, error) {
	mu.Lock()
	declaredType, ok := castHints[t]
	mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	v, err := Convert(declaredType, raw)
	return v, true, err
}

// RegisterRowFactory installs a RowFactory under name (typically a
// fully-qualified type name such as "mypkg.User").
func RegisterRowFactory(name string, f RowFactory) {
	mu.Lock()
	defer mu.Unlock()
	rowFactories[name] = f
}

// RowFactoryFor returns the RowFactory registered under name, if any.
func RowFactoryFor(name string) (RowFactory, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := rowFactories[name]
	return f, ok
}
