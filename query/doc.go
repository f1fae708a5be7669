// Package query provides the predicate, sort and paging primitives evaluated by map collections.
//
// # Overview
//
// A query against a collection is expressed as a single Predicate value:
//
//   - nil: match every entry, no evaluation at all
//   - a plain Predicate: filter entries, storage order is preserved
//   - a *PagingPredicate: filter, order, then window the result into one page
//
// The PagingPredicate is the only way to ask a collection for ordered results. A sorted but
// unpaged request is expressed as a PagingPredicate whose page size is math.MaxInt.
//
// # Predicates
//
// Field predicates resolve a field name against the entry value. Structs are matched by
// field name or json tag, maps by key, and dotted paths walk nested values:
//
//	adults := query.GreaterEqual[string, User]("age", 18)
//	local := query.Equal[string, User]("address.city", "Berlin")
//	p := query.And(adults, local)
//
// The pseudo-field KeyField resolves to the entry key.
//
// # Sorting
//
// SortSpec composes comparison rules left to right; the first rule is the primary order and
// the next ones break ties:
//
//	sort := query.NewSort[string, User]().By("last_name", query.Asc).By("age", query.Desc)
//
// # Paging
//
// PagingPredicate follows iterator semantics: it starts at page 0 and moves with NextPage and
// PreviousPage. SetPage is available for callers that can seek directly.
//
// # Cache Keys
//
// Every built-in predicate, SortSpec and PagingPredicate implements CacheKey() so query
// results can be cached by value. Func predicates wrap closures and have no stable key.
package query
