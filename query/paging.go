package query

import (
	"fmt"
	"sort"
)

// PagingPredicate wraps a predicate with an optional sort and a page window.
//
// It has iterator semantics: a new PagingPredicate points at page 0 and reaching page N
// takes N calls to NextPage. Collections recognise it and return only the current page of
// the ordered matches. Without sort rules the matches are ordered by key.
type PagingPredicate[K comparable, V any] struct {
	inner    Predicate[K, V]
	sort     *SortSpec[K, V]
	pageSize int
	page     int
}

// NewPaging pages the matches of inner in key order. pageSize must be positive.
func NewPaging[K comparable, V any](inner Predicate[K, V], pageSize int) *PagingPredicate[K, V] {
	return NewSortedPaging(inner, nil, pageSize)
}

// NewSortedPaging pages the matches of inner ordered by sort. pageSize must be positive.
func NewSortedPaging[K comparable, V any](inner Predicate[K, V], sort *SortSpec[K, V], pageSize int) *PagingPredicate[K, V] {
	if pageSize <= 0 {
		panic(fmt.Sprintf("query: page size must be positive, got %d", pageSize))
	}
	return &PagingPredicate[K, V]{
		inner:    inner,
		sort:     sort,
		pageSize: pageSize,
	}
}

// Apply delegates to the wrapped predicate.
func (p *PagingPredicate[K, V]) Apply(entry Entry[K, V]) bool {
	if p.inner == nil {
		return true
	}
	return p.inner.Apply(entry)
}

// NextPage moves the window one page forward.
func (p *PagingPredicate[K, V]) NextPage() {
	p.page++
}

// PreviousPage moves the window one page back, stopping at page 0.
func (p *PagingPredicate[K, V]) PreviousPage() {
	if p.page > 0 {
		p.page--
	}
}

// SetPage positions the window directly. Negative values reset to page 0.
func (p *PagingPredicate[K, V]) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	p.page = page
}

// Page returns the zero based page the window points at.
func (p *PagingPredicate[K, V]) Page() int { return p.page }

// PageSize returns the number of entries per page.
func (p *PagingPredicate[K, V]) PageSize() int { return p.pageSize }

// Inner returns the wrapped predicate, nil when every entry matches.
func (p *PagingPredicate[K, V]) Inner() Predicate[K, V] { return p.inner }

// Sort returns the sort rules, nil for key order.
func (p *PagingPredicate[K, V]) Sort() *SortSpec[K, V] { return p.sort }

// ComparatorCount reports the number of sort rules carried by the predicate.
func (p *PagingPredicate[K, V]) ComparatorCount() int {
	return p.sort.ComparatorCount()
}

// CacheKey identifies the inner predicate, the sort and the window.
func (p *PagingPredicate[K, V]) CacheKey() string {
	return fmt.Sprintf("paging(%s,%s,%d,%d)", keyOf(p.inner), p.sort.CacheKey(), p.pageSize, p.page)
}

func (p *PagingPredicate[K, V]) parts() []Predicate[K, V] {
	if p.inner == nil {
		return nil
	}
	return []Predicate[K, V]{p.inner}
}

// Window orders matches and cuts out the current page. matches must already satisfy the
// wrapped predicate; collections that filter in several partitions call it once on the
// merged result so paging stays global. matches is reordered in place.
func (p *PagingPredicate[K, V]) Window(matches []Entry[K, V]) []Entry[K, V] {
	sort.SliceStable(matches, func(i, j int) bool {
		return p.compare(matches[i], matches[j]) < 0
	})

	if p.page >= len(matches)/p.pageSize+1 {
		return matches[:0]
	}
	start := p.page * p.pageSize
	if start >= len(matches) {
		return matches[:0]
	}
	end := len(matches)
	if remaining := end - start; remaining > p.pageSize {
		end = start + p.pageSize
	}
	return matches[start:end]
}

// compare orders by the sort rules and falls back to key order so pages never overlap
// when rules tie.
func (p *PagingPredicate[K, V]) compare(a, b Entry[K, V]) int {
	if c := p.sort.Compare(a, b); c != 0 {
		return c
	}
	return CompareValues(a.Key, b.Key)
}
