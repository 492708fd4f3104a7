// Package binder resolves Go struct types into table/column bindings by
// reflection, memoizing the result per type so repeated Select/Insert
// calls against the same record type pay the reflection cost once.
package binder

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// ColumnBinding maps one struct field to a column name.
type ColumnBinding struct {
	Name  string // resolved column name, snake_cased unless a db tag overrides it
	Index []int  // reflect field path, for FieldByIndex
	Tagged bool  // true when the name came from an explicit `db:"..."` tag
}

// Binding is the resolved table/column mapping for one record type.
type Binding struct {
	Table   string
	Columns []ColumnBinding
}

var cache sync.Map // reflect.Type -> *Binding

// Bind resolves t (which must be a struct type, or a pointer to one)
// into a Binding, memoizing the result.
func Bind(t reflect.Type) (*Binding, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &Error{Msg: "binder: " + t.String() + " is not a struct"}
	}
	if cached, ok := cache.Load(t); ok {
		return cached.(*Binding), nil
	}

	b := &Binding{Table: TableNameFor(t)}
	collectColumns(t, nil, &b.Columns)

	actual, _ := cache.LoadOrStore(t, b)
	return actual.(*Binding), nil
}

// Reset clears the memoization cache. Exposed for tests that register
// competing types under the same reflect.Type across test cases.
func Reset() {
	cache = sync.Map{}
}

func collectColumns(t reflect.Type, prefix []int, out *[]ColumnBinding) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !(f.Anonymous && f.Type.Kind() == reflect.Struct) {
			continue // unexported; an embedded struct is still walked for its exported fields
		}
		index := append(append([]int{}, prefix...), i)

		tag, ok := f.Tag.Lookup("db")
		if ok && tag == "-" {
			continue
		}

		if f.Anonymous && !ok && f.Type.Kind() == reflect.Struct {
			collectColumns(f.Type, index, out)
			continue
		}

		if ok && tag != "" {
			*out = append(*out, ColumnBinding{Name: tag, Index: index, Tagged: true})
			continue
		}

		*out = append(*out, ColumnBinding{Name: snakeCase(f.Name), Index: index})
	}
}

// TableNameFor derives a table name from a type name by snake-casing it,
// unless the type implements an interface exposing TableName() string.
func TableNameFor(t reflect.Type) string {
	if m, ok := t.MethodByName("TableName"); ok && m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
		v := reflect.New(t).Elem()
		out := v.MethodByName("TableName").Call(nil)
		if len(out) == 1 {
			if s, ok := out[0].Interface().(string); ok && s != "" {
				return s
			}
		}
	}
	return snakeCase(t.Name())
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "_")
}

// FieldValue returns the value at cb's field path within v (a struct or
// pointer-to-struct, addressable for SetFieldValue use cases).
func FieldValue(v reflect.Value, cb ColumnBinding) reflect.Value {
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.FieldByIndex(cb.Index)
}

// Error is returned for binder-level structural failures (not a struct,
// unresolvable column).
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }
