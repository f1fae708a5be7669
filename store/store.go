package store

import (
	"context"

	"github.com/goliatone/go-repository-keyvalue/query"
)

// Collection is a named key/value map. Predicates are evaluated by the collection; a nil
// predicate matches every entry and a *query.PagingPredicate returns one ordered page.
type Collection[K comparable, V any] interface {
	Name() string
	Values(ctx context.Context) ([]V, error)
	ValuesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]V, error)
	KeysWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]K, error)
	EntriesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]query.Entry[K, V], error)
	Get(ctx context.Context, key K) (V, bool, error)
	Put(ctx context.Context, key K, value V) error
	Delete(ctx context.Context, key K) error
	Size(ctx context.Context) (int, error)
}

// ChangeListener is called with the keyspace after a successful write.
type ChangeListener func(keyspace string)

// Adapter exposes the named collections of a store. Asking for a collection that holds no
// data returns an empty collection, never an error.
type Adapter[K comparable, V any] interface {
	Collection(ctx context.Context, name string) (Collection[K, V], error)
	Keyspaces(ctx context.Context) ([]string, error)
	OnChange(listener ChangeListener)
	Close() error
}
