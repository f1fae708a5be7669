package store

import (
	"errors"
	"runtime"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Backend selects the collection implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendSQL    Backend = "sql"
)

// Config holds the store options for every backend. Only the section matching Backend is
// validated and used.
type Config struct {
	Backend Backend `mapstructure:"backend"`

	// Partitions is the number of partitions of the memory backend. Keys are routed to a
	// partition by hash. Default: 271
	Partitions int `mapstructure:"partitions"`

	// Parallelism bounds how many partitions are scanned concurrently.
	// Default: GOMAXPROCS
	Parallelism int `mapstructure:"parallelism"`

	Redis RedisConfig `mapstructure:"redis"`
	SQL   SQLConfig   `mapstructure:"sql"`
}

// RedisConfig configures the Redis backend. Each keyspace is stored as one hash named
// KeyPrefix + keyspace. More than one address connects in cluster mode.
type RedisConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Password  string   `mapstructure:"password"`
	DB        int      `mapstructure:"db"`
	KeyPrefix string   `mapstructure:"key_prefix"`
}

// SQLConfig configures the SQL backend.
type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendMemory,
		Partitions:  271,
		Parallelism: runtime.GOMAXPROCS(0),
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			KeyPrefix: "keyvalue:",
		},
		SQL: SQLConfig{
			Driver: "sqlite3",
			DSN:    "file::memory:?cache=shared",
		},
	}
}

// Validate checks the configuration for the selected backend.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis, BackendSQL)),
		validation.Field(&c.Partitions, validation.When(c.Backend == BackendMemory, validation.Required, validation.Min(1))),
		validation.Field(&c.Parallelism, validation.When(c.Backend == BackendMemory, validation.Required, validation.Min(1))),
	)
	if err != nil {
		return toConfigError("", err)
	}

	switch c.Backend {
	case BackendRedis:
		r := c.Redis
		if err := validation.ValidateStruct(&r,
			validation.Field(&r.Addresses, validation.Required),
			validation.Field(&r.DB, validation.Min(0)),
		); err != nil {
			return toConfigError("Redis.", err)
		}
	case BackendSQL:
		s := c.SQL
		if err := validation.ValidateStruct(&s,
			validation.Field(&s.Driver, validation.Required, validation.In("sqlite3")),
			validation.Field(&s.DSN, validation.Required),
		); err != nil {
			return toConfigError("SQL.", err)
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// toConfigError reports the first failing field in name order so messages are stable.
func toConfigError(prefix string, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ConfigError{Field: prefix, Message: err.Error()}
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &ConfigError{Field: prefix + fields[0], Message: errs[fields[0]].Error()}
}
