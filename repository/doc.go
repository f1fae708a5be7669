// Package repository binds the query engine to one entity type and keyspace.
//
//	films := repository.New[string, Film](executor)
//	page, err := films.FindPage(ctx, query.GreaterEqual[string, Film]("year", 2000),
//		repository.PageRequest[string, Film]{Number: 1, Size: 20, Sort: byYear})
//
// The keyspace is derived from the type name (Film -> films) unless the type implements
// store.Keyspacer or WithKeyspace is given.
package repository
