package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator identifies a field comparison.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "ge"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "le"
)

// Comparison matches entries whose field compares to Value with Op.
// Entries without the field never match.
type Comparison[K comparable, V any] struct {
	Field string
	Op    Operator
	Value any
}

// Apply compares the resolved field with Value.
func (c *Comparison[K, V]) Apply(entry Entry[K, V]) bool {
	got, ok := Resolve(entry, c.Field)
	if !ok {
		return false
	}
	r := CompareValues(got, c.Value)
	switch c.Op {
	case OpEqual:
		return r == 0
	case OpNotEqual:
		return r != 0
	case OpGreaterThan:
		return r > 0
	case OpGreaterEqual:
		return r >= 0
	case OpLessThan:
		return r < 0
	case OpLessEqual:
		return r <= 0
	}
	return false
}

// CacheKey identifies the comparison, e.g. ge("year",int(1995)).
func (c *Comparison[K, V]) CacheKey() string {
	return fmt.Sprintf("%s(%s,%s)", c.Op, strconv.Quote(c.Field), valueKey(c.Value))
}

// Equal matches entries whose field equals value.
func Equal[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpEqual, Value: value}
}

// NotEqual matches entries whose field differs from value.
func NotEqual[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpNotEqual, Value: value}
}

// GreaterThan matches entries whose field is greater than value.
func GreaterThan[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpGreaterThan, Value: value}
}

// GreaterEqual matches entries whose field is greater than or equal to value.
func GreaterEqual[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpGreaterEqual, Value: value}
}

// LessThan matches entries whose field is less than value.
func LessThan[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpLessThan, Value: value}
}

// LessEqual matches entries whose field is less than or equal to value.
func LessEqual[K comparable, V any](field string, value any) Predicate[K, V] {
	return &Comparison[K, V]{Field: field, Op: OpLessEqual, Value: value}
}

// BetweenPredicate matches From <= field <= To.
type BetweenPredicate[K comparable, V any] struct {
	Field    string
	From, To any
}

// Between matches entries whose field lies in the closed range [from, to].
func Between[K comparable, V any](field string, from, to any) Predicate[K, V] {
	return &BetweenPredicate[K, V]{Field: field, From: from, To: to}
}

// Apply reports whether the field lies within the range.
func (b *BetweenPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	got, ok := Resolve(entry, b.Field)
	if !ok {
		return false
	}
	return CompareValues(got, b.From) >= 0 && CompareValues(got, b.To) <= 0
}

// CacheKey identifies the field and both bounds.
func (b *BetweenPredicate[K, V]) CacheKey() string {
	return fmt.Sprintf("between(%s,%s,%s)", strconv.Quote(b.Field), valueKey(b.From), valueKey(b.To))
}

// InPredicate matches entries whose field equals one of Values.
type InPredicate[K comparable, V any] struct {
	Field  string
	Values []any
}

// In matches entries whose field equals one of values.
func In[K comparable, V any](field string, values ...any) Predicate[K, V] {
	return &InPredicate[K, V]{Field: field, Values: values}
}

// KeyIn matches entries whose key is one of keys.
func KeyIn[K comparable, V any](keys ...K) Predicate[K, V] {
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	return &InPredicate[K, V]{Field: KeyField, Values: values}
}

// Apply reports whether the field equals one of the values.
func (p *InPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	got, ok := Resolve(entry, p.Field)
	if !ok {
		return false
	}
	for _, v := range p.Values {
		if CompareValues(got, v) == 0 {
			return true
		}
	}
	return false
}

// CacheKey identifies the field and the counted list of values.
func (p *InPredicate[K, V]) CacheKey() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = valueKey(v)
	}
	return fmt.Sprintf("in(%s,[%d]{%s})", strconv.Quote(p.Field), len(parts), strings.Join(parts, ","))
}

// LikePredicate matches string fields against a SQL style pattern where % matches any
// run of characters and _ matches exactly one.
type LikePredicate[K comparable, V any] struct {
	Field      string
	Pattern    string
	IgnoreCase bool
	re         *regexp.Regexp
}

// Like matches string fields against pattern, case sensitive.
func Like[K comparable, V any](field, pattern string) Predicate[K, V] {
	return newLike[K, V](field, pattern, false)
}

// ILike is Like ignoring case.
func ILike[K comparable, V any](field, pattern string) Predicate[K, V] {
	return newLike[K, V](field, pattern, true)
}

func newLike[K comparable, V any](field, pattern string, ignoreCase bool) *LikePredicate[K, V] {
	var b strings.Builder
	if ignoreCase {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')

	return &LikePredicate[K, V]{
		Field:      field,
		Pattern:    pattern,
		IgnoreCase: ignoreCase,
		re:         regexp.MustCompile(b.String()),
	}
}

// Apply matches the text form of the field against the pattern.
func (l *LikePredicate[K, V]) Apply(entry Entry[K, V]) bool {
	got, ok := Resolve(entry, l.Field)
	if !ok || got == nil {
		return false
	}
	return l.re.MatchString(fmt.Sprint(got))
}

// CacheKey identifies the field, the pattern and the case mode.
func (l *LikePredicate[K, V]) CacheKey() string {
	op := "like"
	if l.IgnoreCase {
		op = "ilike"
	}
	return fmt.Sprintf("%s(%s,%s)", op, strconv.Quote(l.Field), strconv.Quote(l.Pattern))
}

// AndPredicate matches when every part matches. An empty AndPredicate matches everything.
type AndPredicate[K comparable, V any] struct {
	Predicates []Predicate[K, V]
}

// And matches entries matched by every predicate. nil predicates are dropped.
func And[K comparable, V any](predicates ...Predicate[K, V]) Predicate[K, V] {
	return &AndPredicate[K, V]{Predicates: compact(predicates)}
}

// Apply stops at the first part that does not match.
func (a *AndPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	for _, p := range a.Predicates {
		if !p.Apply(entry) {
			return false
		}
	}
	return true
}

// CacheKey lists the keys of the parts, prefixed by their count.
func (a *AndPredicate[K, V]) CacheKey() string {
	return "and" + joinKeys(a.Predicates)
}

func (a *AndPredicate[K, V]) parts() []Predicate[K, V] { return a.Predicates }

// OrPredicate matches when any part matches. An empty OrPredicate matches nothing.
type OrPredicate[K comparable, V any] struct {
	Predicates []Predicate[K, V]
}

// Or matches entries matched by any predicate. nil predicates are dropped.
func Or[K comparable, V any](predicates ...Predicate[K, V]) Predicate[K, V] {
	return &OrPredicate[K, V]{Predicates: compact(predicates)}
}

// Apply stops at the first part that matches.
func (o *OrPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	for _, p := range o.Predicates {
		if p.Apply(entry) {
			return true
		}
	}
	return false
}

// CacheKey lists the keys of the parts, prefixed by their count.
func (o *OrPredicate[K, V]) CacheKey() string {
	return "or" + joinKeys(o.Predicates)
}

func (o *OrPredicate[K, V]) parts() []Predicate[K, V] { return o.Predicates }

// NotPredicate negates Predicate.
type NotPredicate[K comparable, V any] struct {
	Predicate Predicate[K, V]
}

// Not negates predicate. Not(nil) matches nothing.
func Not[K comparable, V any](predicate Predicate[K, V]) Predicate[K, V] {
	return &NotPredicate[K, V]{Predicate: predicate}
}

// Apply negates the wrapped predicate.
func (n *NotPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	if n.Predicate == nil {
		return false
	}
	return !n.Predicate.Apply(entry)
}

// CacheKey wraps the key of the negated predicate.
func (n *NotPredicate[K, V]) CacheKey() string {
	return "not(" + keyOf(n.Predicate) + ")"
}

func (n *NotPredicate[K, V]) parts() []Predicate[K, V] {
	if n.Predicate == nil {
		return nil
	}
	return []Predicate[K, V]{n.Predicate}
}

type allPredicate[K comparable, V any] struct{}

// All matches every entry. Unlike a nil predicate it forces an evaluation pass.
func All[K comparable, V any]() Predicate[K, V] {
	return allPredicate[K, V]{}
}

func (allPredicate[K, V]) Apply(Entry[K, V]) bool { return true }

func (allPredicate[K, V]) CacheKey() string { return "all" }

// FuncPredicate adapts a plain function. It has no cache key.
type FuncPredicate[K comparable, V any] func(entry Entry[K, V]) bool

// Func wraps fn as a predicate. Results of queries using it are never cached.
func Func[K comparable, V any](fn func(entry Entry[K, V]) bool) Predicate[K, V] {
	return FuncPredicate[K, V](fn)
}

// Apply calls the wrapped function.
func (f FuncPredicate[K, V]) Apply(entry Entry[K, V]) bool { return f(entry) }

func compact[K comparable, V any](predicates []Predicate[K, V]) []Predicate[K, V] {
	out := make([]Predicate[K, V], 0, len(predicates))
	for _, p := range predicates {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func joinKeys[K comparable, V any](predicates []Predicate[K, V]) string {
	parts := make([]string, len(predicates))
	for i, p := range predicates {
		parts[i] = keyOf(p)
	}
	return fmt.Sprintf("[%d]{%s}", len(parts), strings.Join(parts, ","))
}

// valueKey renders a predicate operand with its type so that distinct operands never share
// a key. Strings are quoted.
func valueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case CacheKeyer:
		return t.CacheKey()
	case string:
		return strconv.Quote(t)
	}
	return fmt.Sprintf("%T(%#v)", v, v)
}

func keyOf(v any) string {
	if v == nil {
		return "nil"
	}
	if k, ok := v.(CacheKeyer); ok {
		return k.CacheKey()
	}
	return fmt.Sprintf("%T:%p", v, v)
}
