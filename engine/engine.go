package engine

import (
	"context"
	"math"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/sirupsen/logrus"
)

// Executor runs find and count queries against a keyspace.
type Executor[K comparable, V any] interface {
	Execute(ctx context.Context, criteria query.Predicate[K, V], sort *query.SortSpec[K, V], offset int64, rows int, keyspace string) ([]V, error)
	Count(ctx context.Context, criteria query.Predicate[K, V], keyspace string) (int64, error)
}

var _ Executor[string, any] = (*Engine[string, any])(nil)

// Engine composes criteria, sort and paging into a single predicate and evaluates it on a
// store collection. It holds no per request state and is safe for concurrent use.
type Engine[K comparable, V any] struct {
	adapter store.Adapter[K, V]
	opts    options
}

// New creates an Engine reading from adapter.
func New[K comparable, V any](adapter store.Adapter[K, V], opts ...Option) *Engine[K, V] {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[K, V]{adapter: adapter, opts: o}
}

// Execute returns the values of keyspace matching criteria, ordered by sort and windowed by
// offset and rows. rows <= 0 disables paging and offset is then ignored. A nil criteria
// with no sort and no paging reads every value without evaluating a predicate.
func (e *Engine[K, V]) Execute(ctx context.Context, criteria query.Predicate[K, V], sort *query.SortSpec[K, V], offset int64, rows int, keyspace string) ([]V, error) {
	predicate, err := e.Compose(criteria, sort, offset, rows)
	if err != nil {
		return nil, err
	}

	collection, err := e.adapter.Collection(ctx, keyspace)
	if err != nil {
		return nil, err
	}

	e.logComposed(keyspace, predicate, rows)

	if predicate == nil {
		return collection.Values(ctx)
	}
	return collection.ValuesWhere(ctx, predicate)
}

// Count returns the number of keys of keyspace matching criteria.
func (e *Engine[K, V]) Count(ctx context.Context, criteria query.Predicate[K, V], keyspace string) (int64, error) {
	collection, err := e.adapter.Collection(ctx, keyspace)
	if err != nil {
		return 0, err
	}

	keys, err := collection.KeysWhere(ctx, criteria)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// Compose builds the predicate Execute hands to the collection.
//
// With rows > 0 the result is a *query.PagingPredicate of size rows, sorted when sort has
// rules, positioned at page offset/rows. Without paging a non empty sort is carried by a
// paging predicate of size math.MaxInt. Otherwise criteria is returned as is, nil included.
func (e *Engine[K, V]) Compose(criteria query.Predicate[K, V], sort *query.SortSpec[K, V], offset int64, rows int) (query.Predicate[K, V], error) {
	predicate := criteria

	if rows > 0 {
		var paging *query.PagingPredicate[K, V]
		if sort.ComparatorCount() > 0 {
			paging = query.NewSortedPaging(predicate, sort, rows)
		} else {
			paging = query.NewPaging(predicate, rows)
		}

		page, err := e.startPage(offset, rows)
		if err != nil {
			return nil, err
		}
		e.advance(paging, page)
		return paging, nil
	}

	if sort.ComparatorCount() > 0 {
		return query.NewSortedPaging(predicate, sort, math.MaxInt), nil
	}
	return predicate, nil
}

// startPage converts offset into a page index. rows must be positive.
func (e *Engine[K, V]) startPage(offset int64, rows int) (int, error) {
	if offset <= 0 {
		return 0, nil
	}
	size := int64(rows)
	if offset%size != 0 && e.opts.offsetPolicy == OffsetReject {
		return 0, goerrors.New("offset must be a multiple of rows", goerrors.CategoryValidation).
			WithTextCode("INVALID_PAGE_WINDOW").
			WithMetadata(map[string]any{"offset": offset, "rows": rows})
	}
	page := offset / size
	if page > math.MaxInt {
		page = math.MaxInt
	}
	return int(page), nil
}

func (e *Engine[K, V]) advance(paging *query.PagingPredicate[K, V], page int) {
	if e.opts.pageAdvance == AdvanceSeek {
		paging.SetPage(page)
		return
	}
	for range page {
		paging.NextPage()
	}
}

func (e *Engine[K, V]) logComposed(keyspace string, predicate query.Predicate[K, V], rows int) {
	fields := logrus.Fields{
		"keyspace": keyspace,
		"shape":    shapeOf(predicate),
	}
	if paging, ok := predicate.(*query.PagingPredicate[K, V]); ok {
		fields["page"] = paging.Page()
		fields["comparators"] = paging.ComparatorCount()
		if rows > 0 {
			fields["rows"] = rows
		}
	}
	e.opts.logger.WithFields(fields).Debug("query composed")
}

// shapeOf names the kind of composed query for logs.
func shapeOf[K comparable, V any](predicate query.Predicate[K, V]) string {
	paging, ok := predicate.(*query.PagingPredicate[K, V])
	switch {
	case predicate == nil:
		return "all"
	case !ok:
		return "filter"
	case paging.PageSize() == math.MaxInt:
		return "sorted"
	default:
		return "paged"
	}
}
