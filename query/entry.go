package query

// Entry is a single key/value pair held by a collection.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Predicate decides whether an entry belongs to a result set.
// A nil Predicate matches every entry.
type Predicate[K comparable, V any] interface {
	Apply(entry Entry[K, V]) bool
}

// CacheKeyer is implemented by query values that can be turned into a stable cache key.
type CacheKeyer interface {
	CacheKey() string
}

// Apply evaluates predicate over entries and returns the matching entries.
// Plain predicates keep the input order. A *PagingPredicate orders the matches and returns
// only its current page.
func Apply[K comparable, V any](entries []Entry[K, V], predicate Predicate[K, V]) []Entry[K, V] {
	if predicate == nil {
		return entries
	}
	if paging, ok := predicate.(*PagingPredicate[K, V]); ok {
		return paging.Window(filter(entries, paging.inner))
	}
	return filter(entries, predicate)
}

// Values returns the values of entries in order.
func Values[K comparable, V any](entries []Entry[K, V]) []V {
	values := make([]V, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values
}

// Keys returns the keys of entries in order.
func Keys[K comparable, V any](entries []Entry[K, V]) []K {
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// IsStable reports whether predicate can be identified by value, meaning it is nil or every
// part of it implements CacheKeyer. A paging predicate also needs a stable sort.
func IsStable[K comparable, V any](predicate Predicate[K, V]) bool {
	if predicate == nil {
		return true
	}
	if _, ok := predicate.(CacheKeyer); !ok {
		return false
	}
	if paging, ok := predicate.(*PagingPredicate[K, V]); ok && !paging.Sort().IsStable() {
		return false
	}
	if c, ok := predicate.(composite[K, V]); ok {
		for _, part := range c.parts() {
			if !IsStable(part) {
				return false
			}
		}
	}
	return true
}

// composite is implemented by predicates built from other predicates.
type composite[K comparable, V any] interface {
	parts() []Predicate[K, V]
}

func filter[K comparable, V any](entries []Entry[K, V], predicate Predicate[K, V]) []Entry[K, V] {
	if predicate == nil {
		out := make([]Entry[K, V], len(entries))
		copy(out, entries)
		return out
	}
	out := make([]Entry[K, V], 0, len(entries))
	for _, e := range entries {
		if predicate.Apply(e) {
			out = append(out, e)
		}
	}
	return out
}
