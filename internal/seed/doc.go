// Package seed loads YAML entry fixtures and writes them into a store adapter.
package seed
