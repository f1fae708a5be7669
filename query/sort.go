package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is the order of a single sort rule.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns asc or desc.
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Comparator orders two entries, returning a negative number, zero or a positive number.
type Comparator[K comparable, V any] func(a, b Entry[K, V]) int

// SortRule is one comparison rule of a SortSpec.
type SortRule[K comparable, V any] struct {
	Field     string
	Direction Direction
	compare   Comparator[K, V]
}

// Compare applies the rule, honoring its direction.
func (r SortRule[K, V]) Compare(a, b Entry[K, V]) int {
	var c int
	if r.compare != nil {
		c = r.compare(a, b)
	} else {
		av, _ := Resolve(a, r.Field)
		bv, _ := Resolve(b, r.Field)
		c = CompareValues(av, bv)
	}
	if r.Direction == Desc {
		return -c
	}
	return c
}

// SortSpec is an ordered list of comparison rules. The first rule is the primary order and
// each following rule breaks ties left by the previous ones. A nil or empty SortSpec requests
// no ordering.
type SortSpec[K comparable, V any] struct {
	rules []SortRule[K, V]
}

// NewSort creates a SortSpec from rules.
func NewSort[K comparable, V any](rules ...SortRule[K, V]) *SortSpec[K, V] {
	return &SortSpec[K, V]{rules: append([]SortRule[K, V](nil), rules...)}
}

// By appends a field rule and returns the spec for chaining.
func (s *SortSpec[K, V]) By(field string, direction Direction) *SortSpec[K, V] {
	s.rules = append(s.rules, SortRule[K, V]{Field: field, Direction: direction})
	return s
}

// ThenComparing appends a rule backed by a custom comparator. name labels the rule in cache
// keys, but a spec holding such a rule is not stable and its results are not cached.
func (s *SortSpec[K, V]) ThenComparing(name string, direction Direction, cmp Comparator[K, V]) *SortSpec[K, V] {
	s.rules = append(s.rules, SortRule[K, V]{Field: name, Direction: direction, compare: cmp})
	return s
}

// ComparatorCount reports the number of rules. It is safe on a nil SortSpec.
func (s *SortSpec[K, V]) ComparatorCount() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns a copy of the rules.
func (s *SortSpec[K, V]) Rules() []SortRule[K, V] {
	if s == nil {
		return nil
	}
	return append([]SortRule[K, V](nil), s.rules...)
}

// Compare runs the rules in declared order and returns the first non-zero result.
func (s *SortSpec[K, V]) Compare(a, b Entry[K, V]) int {
	if s == nil {
		return 0
	}
	for _, r := range s.rules {
		if c := r.Compare(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// CacheKey lists the rules in order. Use IsStable to check that the key identifies the
// order, since custom comparators are only known by name.
func (s *SortSpec[K, V]) CacheKey() string {
	if s.ComparatorCount() == 0 {
		return "sort()"
	}
	parts := make([]string, len(s.rules))
	for i, r := range s.rules {
		name := strconv.Quote(r.Field)
		if r.compare != nil {
			name = "custom(" + name + ")"
		}
		parts[i] = fmt.Sprintf("%s:%s", name, r.Direction)
	}
	return "sort(" + strings.Join(parts, ",") + ")"
}

// IsStable reports whether CacheKey fully identifies the order: the spec is nil or only
// holds field rules. Rules added with ThenComparing make it unstable.
func (s *SortSpec[K, V]) IsStable() bool {
	if s == nil {
		return true
	}
	for _, r := range s.rules {
		if r.compare != nil {
			return false
		}
	}
	return true
}
