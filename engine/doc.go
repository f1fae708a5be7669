// Package engine turns find and count requests into queries a map collection can evaluate.
//
// A find request carries an optional criteria predicate, an optional SortSpec and an
// offset/rows window. Engine.Compose folds them into one predicate:
//
//   - rows > 0: a query.PagingPredicate of page size rows, sorted when the SortSpec has
//     rules, advanced to page offset/rows
//   - rows <= 0 with sort rules: a PagingPredicate of page size math.MaxInt, used only to
//     carry the order
//   - otherwise: the criteria itself, possibly nil
//
// A nil result reads every value of the collection without evaluating anything.
//
// Paging predicates have iterator semantics, so by default the start page is reached with
// offset/rows calls to NextPage. Stores with random access paging can use
// WithPageAdvance(AdvanceSeek). Offsets that are not a multiple of rows start at the page
// containing them unless WithOffsetPolicy(OffsetReject) is set.
//
//	e := engine.New(adapter, engine.WithLogger(logger))
//	sort := query.NewSort[string, Title]().By("year", query.Desc)
//	page, err := e.Execute(ctx, query.Like[string, Title]("title", "The%"), sort, 20, 10, "titles")
//
// Errors returned by the store are passed through unchanged.
package engine
