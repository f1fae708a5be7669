package testsupport

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-repository-keyvalue/internal/seed"
	"github.com/goliatone/go-repository-keyvalue/store"
	"gopkg.in/yaml.v3"
)

var update = flag.Bool("update", false, "rewrite golden files with the actual output")

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureYAML loads a YAML fixture into dest.
func LoadFixtureYAML(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// LoadEntries loads a keyspace to entries fixture. See seed.Fixture for the format.
func LoadEntries[K comparable, V any](t testing.TB, path string) seed.Fixture[K, V] {
	t.Helper()

	fixture, err := seed.LoadFile[K, V](path)
	if err != nil {
		t.Fatalf("failed to load entries from %s: %v", path, err)
	}
	return fixture
}

// SeedAdapter writes the entries fixture at path into adapter.
func SeedAdapter[K comparable, V any](t testing.TB, adapter store.Adapter[K, V], path string) seed.Fixture[K, V] {
	t.Helper()

	fixture := LoadEntries[K, V](t, path)
	if _, err := fixture.Apply(context.Background(), adapter); err != nil {
		t.Fatalf("failed to seed adapter from %s: %v", path, err)
	}
	return fixture
}

// WriteGolden writes test output to a golden file.
// The path is relative to the test package directory.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path. The file is written
// instead when it does not exist yet or the test runs with -update.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	if *update {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareJSONWithGolden marshals v as indented JSON and compares it with the golden file.
func CompareJSONWithGolden(t testing.TB, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}
	CompareWithGolden(t, path, append(data, '\n'))
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
