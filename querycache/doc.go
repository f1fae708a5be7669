// Package querycache provides a read-through caching decorator for the query engine.
//
// # Overview
//
// CachedEngine wraps any engine.Executor and serves repeated Execute and Count calls from a
// cache.CacheService. Results are keyed by keyspace, keyspace generation, method and
// arguments:
//
//	films::g0::Execute::ge("year",int(1995))::sort("year":desc)::20::10
//	films::g0::Count::ge("year",int(1995))
//
// Invalidate bumps the generation, so results fetched before a write are never served after
// it.
//
// Arguments serialize through their CacheKey method, so two structurally equal predicates
// share one cache entry even when they are distinct values.
//
// # Basic Usage
//
//	base := engine.New[string, Film](adapter)
//	service, _ := cache.NewCacheService(cache.DefaultConfig())
//
//	cached := querycache.New[string, Film](base, service, cache.NewDefaultKeySerializer())
//	cached.Subscribe(adapter)
//
//	films, err := cached.Execute(ctx, query.Equal[string, Film]("genre", "drama"), nil, 0, 10, "films")
//
// # Cached vs Pass-through Calls
//
// A call goes straight to the wrapped executor when
//   - its criteria contains a predicate without a CacheKey, such as query.Func
//   - its sort holds a rule added with ThenComparing
//   - its context was marked with WithoutCache
//
// Errors are never cached.
//
// # Invalidation
//
// Invalidate drops every entry of one keyspace by prefix. Subscribe registers Invalidate as
// a store change listener so any Put or Delete on a keyspace clears its cached results.
// Invalidation failures are logged at warn level.
package querycache
