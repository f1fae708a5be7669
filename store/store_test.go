package store

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MyTitle struct{}

type HTTPRoute struct{}

type person struct{}

type customSpace struct{}

func (customSpace) Keyspace() string { return "custom" }

type pointerSpace struct{}

func (*pointerSpace) Keyspace() string { return "via_pointer" }

type Box[T any] struct{ Item T }

func TestKeyspaceOf(t *testing.T) {
	assert.Equal(t, "my_titles", KeyspaceOf[MyTitle]())
	assert.Equal(t, "my_titles", KeyspaceOf[*MyTitle]())
	assert.Equal(t, "http_routes", KeyspaceOf[HTTPRoute]())
	assert.Equal(t, "people", KeyspaceOf[person]())
	assert.Equal(t, "custom", KeyspaceOf[customSpace]())
	assert.Equal(t, "via_pointer", KeyspaceOf[pointerSpace]())
	assert.Equal(t, "boxes", KeyspaceOf[Box[int]]())
	assert.Equal(t, "maps", KeyspaceOf[map[string]any]())
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"MyTitle":     "my_title",
		"HTTPRoute":   "http_route",
		"userID":      "user_id",
		"Version2":    "version_2",
		"already_ok":  "already_ok",
		"with-dash":   "with_dash",
		"__trim__":    "trim",
		"A":           "a",
		"":            "",
		"Order Items": "order_items",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, snakeCase(in))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.Backend = "" }, wantField: "Backend"},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "etcd" }, wantField: "Backend"},
		{name: "zero partitions", mutate: func(c *Config) { c.Partitions = 0 }, wantField: "Partitions"},
		{name: "negative parallelism", mutate: func(c *Config) { c.Parallelism = -1 }, wantField: "Parallelism"},
		{
			name:   "partitions ignored for redis",
			mutate: func(c *Config) { c.Backend = BackendRedis; c.Partitions = 0 },
		},
		{
			name:      "redis without addresses",
			mutate:    func(c *Config) { c.Backend = BackendRedis; c.Redis.Addresses = nil },
			wantField: "Redis.Addresses",
		},
		{
			name:      "sql with unsupported driver",
			mutate:    func(c *Config) { c.Backend = BackendSQL; c.SQL.Driver = "postgres" },
			wantField: "SQL.Driver",
		},
		{
			name:      "sql without dsn",
			mutate:    func(c *Config) { c.Backend = BackendSQL; c.SQL.DSN = "" },
			wantField: "SQL.DSN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection refused")
	err := BackendError(cause, "titles", "scan")

	assert.ErrorIs(t, err, cause)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
	assert.Contains(t, err.Error(), "store scan failed")
}
