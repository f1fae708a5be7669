package repository

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/engine"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
)

// Unpaged disables paging when used as Query.Rows.
const Unpaged = -1

// Query bundles the arguments of a find call.
type Query[K comparable, V any] struct {
	Criteria query.Predicate[K, V]
	Sort     *query.SortSpec[K, V]
	Offset   int64
	Rows     int
}

// PageRequest selects one zero based page of Size items.
type PageRequest[K comparable, V any] struct {
	Number int
	Size   int
	Sort   *query.SortSpec[K, V]
}

// Page is one window of a result set together with the size of the whole set.
type Page[V any] struct {
	Items  []V   `json:"items" yaml:"items"`
	Number int   `json:"number" yaml:"number"`
	Size   int   `json:"size" yaml:"size"`
	Total  int64 `json:"total" yaml:"total"`
}

// TotalPages returns the number of pages of Size items needed to hold Total.
func (p Page[V]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether a page follows this one.
func (p Page[V]) HasNext() bool {
	return p.Number+1 < p.TotalPages()
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	keyspace string
}

// WithKeyspace binds the repository to name instead of the keyspace derived from V.
func WithKeyspace(name string) Option {
	return func(o *options) {
		if name != "" {
			o.keyspace = name
		}
	}
}

// Repository runs queries for one entity type against one keyspace.
type Repository[K comparable, V any] struct {
	executor engine.Executor[K, V]
	keyspace string
}

// New creates a Repository over executor. The keyspace defaults to store.KeyspaceOf[V].
func New[K comparable, V any](executor engine.Executor[K, V], opts ...Option) *Repository[K, V] {
	o := options{keyspace: store.KeyspaceOf[V]()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[K, V]{executor: executor, keyspace: o.keyspace}
}

// Keyspace returns the keyspace the repository reads.
func (r *Repository[K, V]) Keyspace() string { return r.keyspace }

// FindBy returns the values matching q.
func (r *Repository[K, V]) FindBy(ctx context.Context, q Query[K, V]) ([]V, error) {
	return r.executor.Execute(ctx, q.Criteria, q.Sort, q.Offset, q.Rows, r.keyspace)
}

// FindAll returns every value, ordered by sort when it has rules.
func (r *Repository[K, V]) FindAll(ctx context.Context, sort *query.SortSpec[K, V]) ([]V, error) {
	return r.executor.Execute(ctx, nil, sort, 0, Unpaged, r.keyspace)
}

// CountBy returns the number of entries matching criteria.
func (r *Repository[K, V]) CountBy(ctx context.Context, criteria query.Predicate[K, V]) (int64, error) {
	return r.executor.Count(ctx, criteria, r.keyspace)
}

// FindPage returns page req.Number of the values matching criteria along with the total
// number of matches.
func (r *Repository[K, V]) FindPage(ctx context.Context, criteria query.Predicate[K, V], req PageRequest[K, V]) (Page[V], error) {
	if req.Size <= 0 || req.Number < 0 {
		return Page[V]{}, goerrors.New("page number must be non-negative and size positive", goerrors.CategoryValidation).
			WithTextCode("INVALID_PAGE_REQUEST").
			WithMetadata(map[string]any{"number": req.Number, "size": req.Size})
	}

	items, err := r.executor.Execute(ctx, criteria, req.Sort, int64(req.Number)*int64(req.Size), req.Size, r.keyspace)
	if err != nil {
		return Page[V]{}, err
	}

	total, err := r.executor.Count(ctx, criteria, r.keyspace)
	if err != nil {
		return Page[V]{}, err
	}

	return Page[V]{Items: items, Number: req.Number, Size: req.Size, Total: total}, nil
}
