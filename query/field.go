package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// KeyField is the pseudo-field that resolves to the entry key.
const KeyField = "__key"

// Resolve returns the value of field for entry. KeyField yields the key, anything else is
// looked up on the value with FieldValue.
func Resolve[K comparable, V any](entry Entry[K, V], field string) (any, bool) {
	if field == KeyField {
		return entry.Key, true
	}
	return FieldValue(entry.Value, field)
}

// FieldValue looks up a dotted field path on v. Struct fields match by name, json tag or
// case-insensitive name; maps with string keys match by key.
func FieldValue(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	current := reflect.ValueOf(v)
	for _, part := range strings.Split(path, ".") {
		next, ok := lookup(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	if !current.IsValid() || !current.CanInterface() {
		return nil, false
	}
	return current.Interface(), true
}

func lookup(rv reflect.Value, name string) (reflect.Value, bool) {
	rv = indirect(rv)
	if !rv.IsValid() {
		return reflect.Value{}, false
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return reflect.Value{}, false
		}
		return val, true
	case reflect.Struct:
		rt := rv.Type()
		if f, ok := rt.FieldByName(name); ok && f.IsExported() {
			return rv.FieldByIndex(f.Index), true
		}
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			tag := strings.Split(f.Tag.Get("json"), ",")[0]
			if tag == name || strings.EqualFold(f.Name, name) {
				return rv.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// CompareValues orders two loosely typed values. Numbers compare numerically across kinds,
// strings lexically, bools false before true, times chronologically. nil sorts first.
// Values of unrelated types fall back to their fmt representation.
func CompareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	ra, rb := indirect(reflect.ValueOf(a)), indirect(reflect.ValueOf(b))
	if ra.IsValid() && rb.IsValid() {
		if c, ok := compareNumbers(ra, rb); ok {
			return c
		}
		if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
			return strings.Compare(ra.String(), rb.String())
		}
		if ra.Kind() == reflect.Bool && rb.Kind() == reflect.Bool {
			return compareBools(ra.Bool(), rb.Bool())
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareNumbers(a, b reflect.Value) (int, bool) {
	ka, kb := numberKind(a.Kind()), numberKind(b.Kind())
	if ka == 0 || kb == 0 {
		return 0, false
	}
	if ka == kb {
		switch ka {
		case 'i':
			return compareOrdered(a.Int(), b.Int()), true
		case 'u':
			return compareOrdered(a.Uint(), b.Uint()), true
		}
	}
	return compareOrdered(toFloat(a, ka), toFloat(b, kb)), true
}

func numberKind(k reflect.Kind) byte {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return 'i'
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 'u'
	case reflect.Float32, reflect.Float64:
		return 'f'
	}
	return 0
}

func toFloat(v reflect.Value, kind byte) float64 {
	switch kind {
	case 'i':
		return float64(v.Int())
	case 'u':
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

type ordered interface {
	~int64 | ~uint64 | ~float64
}

func compareOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
