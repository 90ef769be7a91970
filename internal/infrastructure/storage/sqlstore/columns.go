package sqlstore

import (
	"reflect"
	"sync"
)

// Columns lists the "db" tags of T in field order. It is called once per repo,
// when the select list is built.
func Columns[T any]() []string {
	meta := metadataFor(reflect.TypeFor[T]())
	cols := make([]string, len(meta))
	for i, f := range meta {
		cols[i] = f.column
	}
	return cols
}

type field struct {
	index  int
	column string
}

var typeCache sync.Map // map[reflect.Type][]field

func metadataFor(t reflect.Type) []field {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]field)
	}

	var fields []field
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			tag := t.Field(i).Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			fields = append(fields, field{index: i, column: tag})
		}
	}

	typeCache.Store(t, fields)
	return fields
}

// ToMap converts a struct to column values using its "db" tags.
func ToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta))
	for _, f := range meta {
		res[f.column] = rv.Field(f.index).Interface()
	}
	return res
}
