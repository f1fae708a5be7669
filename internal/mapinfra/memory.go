package mapinfra

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// memoryAdapter keeps every keyspace in process. Each collection is split into a fixed
// number of partitions and keys are routed by the xxhash of their msgpack encoding, the
// same routing a clustered map uses to spread entries over members.
type memoryAdapter[K comparable, V any] struct {
	collections *xsync.MapOf[string, *memoryCollection[K, V]]
	partitions  int
	parallelism int
	listeners   listeners
	log         logrus.FieldLogger
}

// NewMemoryAdapter creates an in-process adapter. Values below 1 are raised to 1.
func NewMemoryAdapter[K comparable, V any](partitions, parallelism int, logger logrus.FieldLogger) *memoryAdapter[K, V] {
	return &memoryAdapter[K, V]{
		collections: xsync.NewMapOf[string, *memoryCollection[K, V]](),
		partitions:  max(partitions, 1),
		parallelism: max(parallelism, 1),
		log:         orDiscard(logger),
	}
}

func (a *memoryAdapter[K, V]) Collection(_ context.Context, name string) (store.Collection[K, V], error) {
	c, _ := a.collections.LoadOrCompute(name, func() *memoryCollection[K, V] {
		return a.newCollection(name)
	})
	return c, nil
}

func (a *memoryAdapter[K, V]) Keyspaces(context.Context) ([]string, error) {
	names := make(map[string]struct{})
	a.collections.Range(func(name string, c *memoryCollection[K, V]) bool {
		if c.size() > 0 {
			names[name] = struct{}{}
		}
		return true
	})
	return sortedNames(names), nil
}

func (a *memoryAdapter[K, V]) OnChange(listener store.ChangeListener) {
	a.listeners.add(listener)
}

func (a *memoryAdapter[K, V]) Close() error {
	a.collections.Clear()
	return nil
}

func (a *memoryAdapter[K, V]) newCollection(name string) *memoryCollection[K, V] {
	parts := make([]*xsync.MapOf[K, V], a.partitions)
	for i := range parts {
		parts[i] = xsync.NewMapOf[K, V]()
	}
	a.log.WithFields(logrus.Fields{"keyspace": name, "partitions": a.partitions}).Debug("collection created")
	return &memoryCollection[K, V]{
		name:        name,
		partitions:  parts,
		parallelism: a.parallelism,
		notify:      a.listeners.notify,
	}
}

type memoryCollection[K comparable, V any] struct {
	name        string
	partitions  []*xsync.MapOf[K, V]
	parallelism int
	codec       codec[K, V]
	notify      func(keyspace string)
}

func (c *memoryCollection[K, V]) Name() string { return c.name }

func (c *memoryCollection[K, V]) Values(ctx context.Context) ([]V, error) {
	entries, err := c.EntriesWhere(ctx, nil)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *memoryCollection[K, V]) ValuesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]V, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *memoryCollection[K, V]) KeysWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]K, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Keys(entries), nil
}

// EntriesWhere filters every partition concurrently and merges the matches. A paging
// predicate is windowed once over the merged matches, never per partition.
func (c *memoryCollection[K, V]) EntriesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]query.Entry[K, V], error) {
	filter := predicate
	paging, isPaging := predicate.(*query.PagingPredicate[K, V])
	if isPaging {
		filter = paging.Inner()
	}

	matches := make([][]query.Entry[K, V], len(c.partitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, part := range c.partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part.Range(func(key K, value V) bool {
				e := query.Entry[K, V]{Key: key, Value: value}
				if filter == nil || filter.Apply(e) {
					matches[i] = append(matches[i], e)
				}
				return true
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, m := range matches {
		total += len(m)
	}
	merged := make([]query.Entry[K, V], 0, total)
	for _, m := range matches {
		merged = append(merged, m...)
	}

	if isPaging {
		return paging.Window(merged), nil
	}
	return merged, nil
}

func (c *memoryCollection[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	part, err := c.partitionFor(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := part.Load(key)
	return v, ok, nil
}

func (c *memoryCollection[K, V]) Put(_ context.Context, key K, value V) error {
	part, err := c.partitionFor(key)
	if err != nil {
		return err
	}
	part.Store(key, value)
	c.notify(c.name)
	return nil
}

func (c *memoryCollection[K, V]) Delete(_ context.Context, key K) error {
	part, err := c.partitionFor(key)
	if err != nil {
		return err
	}
	if _, loaded := part.LoadAndDelete(key); loaded {
		c.notify(c.name)
	}
	return nil
}

func (c *memoryCollection[K, V]) Size(context.Context) (int, error) {
	return c.size(), nil
}

func (c *memoryCollection[K, V]) size() int {
	n := 0
	for _, part := range c.partitions {
		n += part.Size()
	}
	return n
}

// partitionFor routes key to its partition.
func (c *memoryCollection[K, V]) partitionFor(key K) (*xsync.MapOf[K, V], error) {
	data, err := c.codec.encodeKey(key)
	if err != nil {
		return nil, store.CodecError(err, c.name)
	}
	return c.partitions[xxhash.Sum64(data)%uint64(len(c.partitions))], nil
}
