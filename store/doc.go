// Package store defines the map store contract consumed by the query engine.
//
// An Adapter hands out named Collections. A Collection evaluates query predicates against
// its entries and returns values or keys; a *query.PagingPredicate makes the collection
// order the matches and return a single page.
//
// Three backends are provided through pkg/di:
//
//   - memory: a partitioned in-process map, keys routed to partitions by hash and
//     predicates evaluated on all partitions in parallel
//   - redis: one hash per keyspace, msgpack encoded, predicates evaluated client side
//   - sql: a bun managed table (sqlite), one row per entry
//
// Keyspace names default to the snake_case plural of the entity type name, see KeyspaceOf.
//
// Collections are safe for concurrent use. Writes notify the listeners registered with
// Adapter.OnChange, which the query cache uses for invalidation.
package store
