package cacheinfra

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of cached query results.
	Capacity int `mapstructure:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Default: 256
	NumShards int `mapstructure:"num_shards"`

	// TTL is the time-to-live of a cached result.
	TTL time.Duration `mapstructure:"ttl"`

	// EvictionPercentage is the share of entries evicted when the cache is full, 1-100.
	// Default: 10
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// EarlyRefresh refreshes hot entries before they expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig `mapstructure:"early_refresh"`

	// MissingRecordStorage remembers fetches that failed with sturdyc.ErrNotFound.
	MissingRecordStorage bool `mapstructure:"missing_record_storage"`

	// EvictionInterval sets how often expired entries are swept. Zero keeps the sturdyc
	// default.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `mapstructure:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay"`
}

// DefaultConfig caches up to 10000 results for one minute with early refresh disabled.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions returns the options not passed to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required.Error("must be greater than 0"), validation.Min(1).Error("must be greater than 0")),
		validation.Field(&c.NumShards, validation.Required.Error("must be greater than 0"), validation.Min(1).Error("must be greater than 0")),
		validation.Field(&c.TTL, validation.Required.Error("must be greater than 0"), validation.Min(time.Duration(1)).Error("must be greater than 0")),
		validation.Field(&c.EvictionPercentage, validation.Required.Error("must be between 1 and 100"), validation.Min(1).Error("must be between 1 and 100"), validation.Max(100).Error("must be between 1 and 100")),
	)
	if err != nil {
		return toConfigError("", err)
	}

	if r := c.EarlyRefresh; r != nil {
		nonNegative := validation.Min(time.Duration(0)).Error("must be non-negative")
		if err := validation.ValidateStruct(r,
			validation.Field(&r.MinAsyncRefreshTime, nonNegative),
			validation.Field(&r.MaxAsyncRefreshTime, nonNegative),
			validation.Field(&r.SyncRefreshTime, nonNegative),
			validation.Field(&r.RetryBaseDelay, nonNegative),
		); err != nil {
			return toConfigError("EarlyRefresh.", err)
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

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

// Stats counts cache lookups since the service was created.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// SturdycService wraps a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[any]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewSturdycService validates cfg and creates the sturdyc client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key, calling fetchFn on a miss. Concurrent misses
// on the same key share a single fetch. Failed fetches are not cached.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, &ConfigError{Field: "fetchFn", Message: "cannot be nil"}
	}

	var fetched atomic.Bool
	value, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		fetched.Store(true)
		return fetchFn(ctx)
	})
	if fetched.Load() {
		s.misses.Add(1)
	} else {
		s.hits.Add(1)
	}
	return value, err
}

// Delete removes a single entry.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix and reports how many were
// removed.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
			removed++
		}
	}
	return removed, nil
}

// Stats returns the lookup counters and the current number of entries.
func (s *SturdycService) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.client.Size(),
	}
}
