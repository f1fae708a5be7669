// Package cache provides caching interfaces and key serialization for query result caching.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: a read-through cache with prefix invalidation, backed by sturdyc
//   - KeySerializer: builds stable cache keys from method names and arguments
//
// # Basic Usage
//
//	service, err := cache.NewCacheService(cache.DefaultConfig())
//	serializer := cache.NewDefaultKeySerializer()
//
//	key := "films" + cache.KeySeparator + serializer.SerializeKey("Count", criteria)
//	count, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) (int64, error) {
//		return executor.Count(ctx, criteria, "films")
//	})
//
// # Key Serialization Strategy
//
// Arguments implementing Keyer contribute their CacheKey. Everything else is serialized by
// reflection:
//
//   - nil values and nil pointers: "nil"
//   - Basic types: direct string representation
//   - Slices/arrays: "[n]{a,b}"
//   - Maps: sorted "map[n]{k=v}" pairs
//   - Structs: exported fields only, "{Name:value}"
//   - Functions and channels: their address, stable within one process only
//   - Anything else: JSON
//
// Predicates built from query.Func have no CacheKey. Callers such as querycache skip the
// cache for them instead of keying on a function address.
//
// # Invalidation
//
// DeleteByPrefix removes every key starting with a prefix. Query results are stored under
// "<keyspace>::" so one keyspace can be dropped after a write.
package cache
