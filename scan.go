package qdb

import (
	"reflect"
	"time"

	"github.com/go-qdb/qdb/internal/binder"
	"github.com/go-qdb/qdb/typeconv"
)

// Scan populates dest, a pointer to a struct, from the row's columns
// using the same binder the query side uses to resolve column names.
// A column with no matching field is ignored; a field with no matching
// column is left at its zero value.
func (r Row) Scan(dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return badArgument("qdb: Scan requires a pointer to struct, got %T", dest)
	}
	elem := v.Elem()

	b, err := binder.Bind(elem.Type())
	if err != nil {
		return badArgument("qdb: %v", err)
	}

	for _, cb := range b.Columns {
		raw := r.Get(cb.Name)
		if raw == nil {
			continue
		}
		field := binder.FieldValue(elem, cb)
		if !field.CanSet() {
			continue
		}
		if err := assign(field, raw); err != nil {
			return badArgument("qdb: column %q: %v", cb.Name, err)
		}
	}
	return nil
}

// Structs scans every row in rows into a freshly allocated element of
// the slice pointed to by dest (*[]T or *[]*T).
func Structs(rows []Row, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return badArgument("qdb: Structs requires a pointer to slice, got %T", dest)
	}
	sliceVal := v.Elem()
	elemType := sliceVal.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	structType := elemType
	if isPtr {
		structType = elemType.Elem()
	}

	out := reflect.MakeSlice(sliceVal.Type(), 0, len(rows))
	for _, row := range rows {
		item := reflect.New(structType)
		if err := row.Scan(item.Interface()); err != nil {
			return err
		}
		if isPtr {
			out = reflect.Append(out, item)
		} else {
			out = reflect.Append(out, item.Elem())
		}
	}
	sliceVal.Set(out)
	return nil
}

func assign(field reflect.Value, raw any) error {
	if converted, ok, err := typeconv.ConvertForType(field.Type(), raw); ok {
		if err != nil {
			return err
		}
		raw = converted
	}

	rv := reflect.ValueOf(raw)
	if !rv.IsValid() {
		return nil
	}

	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	if rv.ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}

	switch field.Type() {
	case reflect.TypeOf(time.Time{}):
		if t, ok := raw.(time.Time); ok {
			field.Set(reflect.ValueOf(t))
			return nil
		}
	case reflect.TypeOf(""):
		if b, ok := raw.([]byte); ok {
			field.SetString(string(b))
			return nil
		}
	}

	return badArgument("qdb: cannot assign %T into field of type %s", raw, field.Type())
}
