package seed

import (
	"context"
	"io"
	"os"
	"reflect"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Fixture maps keyspace names to the entries stored in them.
//
// The YAML form is a mapping of keyspace to a list of key/value pairs:
//
//	films:
//	  - key: alien
//	    value: {name: Alien, year: 1979}
//	  - value: {name: Heat, year: 1995}
//
// A missing key on a string keyed fixture is replaced by a random UUID.
type Fixture[K comparable, V any] map[string][]query.Entry[K, V]

type rawEntry struct {
	Key   yaml.Node `yaml:"key"`
	Value yaml.Node `yaml:"value"`
}

// Decode reads a fixture document from r.
func Decode[K comparable, V any](r io.Reader) (Fixture[K, V], error) {
	var raw map[string][]rawEntry
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, invalid(err, "", -1)
	}

	fixture := make(Fixture[K, V], len(raw))
	for keyspace, items := range raw {
		entries := make([]query.Entry[K, V], 0, len(items))
		for i, item := range items {
			entry, err := decodeEntry[K, V](item)
			if err != nil {
				return nil, invalid(err, keyspace, i)
			}
			entries = append(entries, entry)
		}
		fixture[keyspace] = entries
	}
	return fixture, nil
}

// LoadFile decodes the fixture stored at path.
func LoadFile[K comparable, V any](path string) (Fixture[K, V], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "cannot open fixture").
			WithTextCode("FIXTURE_NOT_FOUND").
			WithMetadata(map[string]any{"path": path})
	}
	defer f.Close()
	return Decode[K, V](f)
}

// Keyspaces returns the fixture keyspaces in name order.
func (f Fixture[K, V]) Keyspaces() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries across all keyspaces.
func (f Fixture[K, V]) Len() int {
	n := 0
	for _, entries := range f {
		n += len(entries)
	}
	return n
}

// Apply puts every fixture entry into adapter, keyspace by keyspace in name order, and
// returns the number of entries written.
func (f Fixture[K, V]) Apply(ctx context.Context, adapter store.Adapter[K, V]) (int, error) {
	written := 0
	for _, name := range f.Keyspaces() {
		collection, err := adapter.Collection(ctx, name)
		if err != nil {
			return written, err
		}
		for _, entry := range f[name] {
			if err := collection.Put(ctx, entry.Key, entry.Value); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func decodeEntry[K comparable, V any](item rawEntry) (query.Entry[K, V], error) {
	var entry query.Entry[K, V]

	if item.Key.Kind == 0 {
		key, ok := any(uuid.NewString()).(K)
		if !ok {
			return entry, goerrors.New("entry has no key", goerrors.CategoryValidation)
		}
		entry.Key = key
	} else if err := item.Key.Decode(&entry.Key); err != nil {
		return entry, err
	}

	if item.Value.Kind == 0 {
		if reflect.TypeOf((*V)(nil)).Elem().Kind() != reflect.Ptr {
			return entry, goerrors.New("entry has no value", goerrors.CategoryValidation)
		}
		return entry, nil
	}
	if err := item.Value.Decode(&entry.Value); err != nil {
		return entry, err
	}
	return entry, nil
}

func invalid(err error, keyspace string, index int) error {
	meta := map[string]any{}
	if keyspace != "" {
		meta["keyspace"] = keyspace
		meta["index"] = index
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid fixture").
		WithTextCode("INVALID_FIXTURE").
		WithMetadata(meta)
}
