package store

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Keyspacer lets an entity type choose its own keyspace name.
type Keyspacer interface {
	Keyspace() string
}

// KeyspaceOf returns the keyspace for entity type V: the Keyspace() method result when V
// implements Keyspacer, otherwise the snake_case plural of the type name
// (MyTitle -> my_titles, *HTTPRoute -> http_routes).
func KeyspaceOf[V any]() string {
	var zero V
	if k, ok := any(zero).(Keyspacer); ok {
		if name := k.Keyspace(); name != "" {
			return name
		}
	}
	if k, ok := any(&zero).(Keyspacer); ok {
		if name := k.Keyspace(); name != "" {
			return name
		}
	}

	t := reflect.TypeOf((*V)(nil)).Elem()
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = t.Kind().String()
	}
	return inflection.Plural(snakeCase(name))
}

// snakeCase converts CamelCase type names to snake_case. Anything that is not a letter or
// digit collapses into a single underscore so the result is safe inside cache keys and
// Redis key names.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	sep := false
	emit := func() {
		if !sep && b.Len() > 0 {
			b.WriteByte('_')
			sep = true
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					emit()
				}
			}
			b.WriteRune(unicode.ToLower(r))
			sep = false
		case unicode.IsLower(r):
			b.WriteRune(r)
			sep = false
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				emit()
			}
			b.WriteRune(r)
			sep = false
		default:
			emit()
		}
	}

	return strings.Trim(b.String(), "_")
}
