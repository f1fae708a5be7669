// Package criteria turns textual queries into the predicate and sort values the engine
// consumes.
//
// CELAccessor compiles a CEL boolean expression into a query.Predicate; ParseSort reads an
// order clause such as "year desc, title" into a query.SortSpec.
package criteria
