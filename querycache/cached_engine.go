package querycache

import (
	"context"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/goliatone/go-repository-keyvalue/cache"
	"github.com/goliatone/go-repository-keyvalue/engine"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

var _ engine.Executor[string, any] = (*CachedEngine[string, any])(nil)

// Option configures a CachedEngine.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
}

// WithLogger sets the logger used to report invalidation failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// CachedEngine decorates an engine.Executor with read-through caching.
//
// Every key carries the generation of its keyspace. Invalidate bumps the generation before
// dropping entries, so a fetch that started before a write can only store its result under
// a key no later read will use.
type CachedEngine[K comparable, V any] struct {
	base          engine.Executor[K, V]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	generations   *xsync.MapOf[string, *atomic.Uint64]
	log           logrus.FieldLogger
}

// New creates a new CachedEngine that wraps base with caching
func New[K comparable, V any](base engine.Executor[K, V], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedEngine[K, V] {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}
	return &CachedEngine[K, V]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		generations:   xsync.NewMapOf[string, *atomic.Uint64](),
		log:           o.logger,
	}
}

// Execute returns the cached result for the same criteria, sort and window, fetching from the
// base executor on a miss. Criteria or sorts that cannot be identified by value skip the
// cache.
func (c *CachedEngine[K, V]) Execute(ctx context.Context, criteria query.Predicate[K, V], sort *query.SortSpec[K, V], offset int64, rows int, keyspace string) ([]V, error) {
	if !c.cacheable(ctx, criteria) || !sort.IsStable() {
		return c.base.Execute(ctx, criteria, sort, offset, rows, keyspace)
	}

	key := c.key(keyspace, "Execute", criteria, sort, offset, rows)
	values, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]V, error) {
		return c.base.Execute(ctx, criteria, sort, offset, rows, keyspace)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(values), nil
}

// Count returns the number of matching keys, with caching
func (c *CachedEngine[K, V]) Count(ctx context.Context, criteria query.Predicate[K, V], keyspace string) (int64, error) {
	if !c.cacheable(ctx, criteria) {
		return c.base.Count(ctx, criteria, keyspace)
	}

	key := c.key(keyspace, "Count", criteria)
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (int64, error) {
		return c.base.Count(ctx, criteria, keyspace)
	})
}

// Invalidate drops every cached result of keyspace. Results still being fetched when it
// runs are never served afterwards, even if dropping the entries fails.
func (c *CachedEngine[K, V]) Invalidate(ctx context.Context, keyspace string) error {
	c.generation(keyspace).Add(1)
	removed, err := c.cache.DeleteByPrefix(ctx, keyspace+cache.KeySeparator)
	if err != nil {
		c.log.WithError(err).WithField("keyspace", keyspace).Warn("cache invalidation failed")
		return err
	}
	c.log.WithFields(logrus.Fields{
		"keyspace": keyspace,
		"removed":  removed,
	}).Debug("cache invalidated")
	return nil
}

// Subscribe invalidates a keyspace whenever adapter reports a write to it.
func (c *CachedEngine[K, V]) Subscribe(adapter store.Adapter[K, V]) {
	adapter.OnChange(func(keyspace string) {
		_ = c.Invalidate(context.Background(), keyspace)
	})
}

func (c *CachedEngine[K, V]) cacheable(ctx context.Context, criteria query.Predicate[K, V]) bool {
	return !bypassFromContext(ctx) && query.IsStable(criteria)
}

func (c *CachedEngine[K, V]) generation(keyspace string) *atomic.Uint64 {
	gen, _ := c.generations.LoadOrCompute(keyspace, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	return gen
}

// key builds <keyspace>::g<generation>::<method>::<args>.
func (c *CachedEngine[K, V]) key(keyspace, method string, args ...any) string {
	gen := "g" + strconv.FormatUint(c.generation(keyspace).Load(), 10)
	return keyspace + cache.KeySeparator + gen + cache.KeySeparator + c.keySerializer.SerializeKey(method, args...)
}
