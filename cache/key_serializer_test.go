package cache

import (
	"strings"
	"testing"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type stableArg struct{ key string }

func (s stableArg) CacheKey() string { return "stable(" + s.key + ")" }

type pointerArg struct{ n int }

func (p *pointerArg) CacheKey() string { return "ptr" }

type window struct {
	Offset int64
	Rows   int
	hidden string
}

func TestDefaultKeySerializer_SerializeKey(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	var nilPointer *pointerArg
	var nilSlice []int
	var nilMap map[string]int

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{"no args", "Execute", nil, "Execute"},
		{"basic types", "Execute", []any{1, "hello", true, 3.5}, joinWithSeparator("Execute", "1", "hello", "true", "3.5")},
		{"keyer value", "Execute", []any{stableArg{key: "a"}}, joinWithSeparator("Execute", "stable(a)")},
		{"keyer pointer", "Execute", []any{&pointerArg{n: 1}}, joinWithSeparator("Execute", "ptr")},
		{"nil keyer pointer", "Execute", []any{nilPointer}, joinWithSeparator("Execute", "nil")},
		{"nil", "Count", []any{nil}, joinWithSeparator("Count", "nil")},
		{"nil slice", "Count", []any{nilSlice}, joinWithSeparator("Count", "nil")},
		{"nil map", "Count", []any{nilMap}, joinWithSeparator("Count", "nil")},
		{"slice", "Count", []any{[]any{1, stableArg{key: "b"}}}, joinWithSeparator("Count", "[2]{1,stable(b)}")},
		{"array", "Count", []any{[2]string{"x", "y"}}, joinWithSeparator("Count", "[2]{x,y}")},
		{"map sorted", "Count", []any{map[string]int{"b": 2, "a": 1}}, joinWithSeparator("Count", "map[2]{a=1,b=2}")},
		{"struct exported fields", "Execute", []any{window{Offset: 20, Rows: 10, hidden: "x"}}, joinWithSeparator("Execute", "{Offset:20,Rows:10}")},
		{"pointer to struct", "Execute", []any{&window{Offset: 1, Rows: 2}}, joinWithSeparator("Execute", "{Offset:1,Rows:2}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	args := []any{map[string]any{"z": 1, "a": []int{1, 2}, "m": "x"}, stableArg{key: "q"}, int64(30)}

	first := serializer.SerializeKey("Execute", args...)
	for range 50 {
		if got := serializer.SerializeKey("Execute", args...); got != first {
			t.Fatalf("key changed between calls: %q vs %q", first, got)
		}
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	fn := func() {}

	key := serializer.SerializeKey("Execute", fn)
	if !strings.HasPrefix(key, joinWithSeparator("Execute", "func:0x")) {
		t.Errorf("expected function pointer key, got %q", key)
	}
	if key != serializer.SerializeKey("Execute", fn) {
		t.Error("expected the same function to produce the same key")
	}
}

func TestDefaultKeySerializer_Fallback(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	key := serializer.SerializeKey("Execute", complex(1, 2))
	if key != joinWithSeparator("Execute", "(1+2i)") {
		t.Errorf("unexpected complex key %q", key)
	}

	type unsafeField struct {
		C chan int
	}
	key = serializer.SerializeKey("Execute", unsafeField{})
	if key != joinWithSeparator("Execute", "{C:nil}") {
		t.Errorf("unexpected key for nil channel field %q", key)
	}
}
