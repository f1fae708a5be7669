// Command mapquery runs queries against keyspaces seeded from a YAML fixture.
//
//	mapquery find --fixture films.yaml --keyspace films --where 'value.year >= 1995' --sort 'year:desc' --rows 5
//	mapquery page --fixture films.yaml --keyspace films --page 1 --size 2
//	mapquery count --fixture films.yaml --keyspace films --where 'value.genre == "crime"'
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
