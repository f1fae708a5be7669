package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

func constant(v any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return v, nil }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}
	if cfg.TTL != time.Minute {
		t.Errorf("expected TTL to be one minute, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if cfg.EarlyRefresh != nil {
		t.Error("expected early refresh to be disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantMsg   string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:      "zero capacity",
			mutate:    func(c *Config) { c.Capacity = 0 },
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "negative shards",
			mutate:    func(c *Config) { c.NumShards = -2 },
			wantField: "NumShards",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "zero ttl",
			mutate:    func(c *Config) { c.TTL = 0 },
			wantField: "TTL",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "eviction too low",
			mutate:    func(c *Config) { c.EvictionPercentage = 0 },
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name:      "eviction too high",
			mutate:    func(c *Config) { c.EvictionPercentage = 101 },
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name: "negative early refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: -time.Second,
					MaxAsyncRefreshTime: 20 * time.Second,
					SyncRefreshTime:     30 * time.Second,
					RetryBaseDelay:      100 * time.Millisecond,
				}
			},
			wantField: "EarlyRefresh.MinAsyncRefreshTime",
			wantMsg:   "must be non-negative",
		},
		{
			name:      "first failing field is reported",
			mutate:    func(c *Config) { c.TTL = 0; c.Capacity = 0 },
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
			if cfgErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, cfgErr.Message)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"minimal", testConfig(), 0},
		{"missing records", func() Config { c := testConfig(); c.MissingRecordStorage = true; return c }(), 1},
		{"all", func() Config {
			c := testConfig()
			c.MissingRecordStorage = true
			c.EvictionInterval = time.Second
			c.EarlyRefresh = &EarlyRefreshConfig{
				MinAsyncRefreshTime: time.Second,
				MaxAsyncRefreshTime: 2 * time.Second,
				SyncRefreshTime:     3 * time.Second,
				RetryBaseDelay:      time.Millisecond,
			}
			return c
		}(), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.cfg.ToSturdycOptions()); got != tt.want {
				t.Errorf("expected %d options, got %d", tt.want, got)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 0

	service, err := NewSturdycService(cfg)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if err.Error() != "config error in field Capacity: must be greater than 0" {
		t.Errorf("unexpected error message %q", err.Error())
	}
	if service != nil {
		t.Error("expected service to be nil when error occurs")
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	for range 3 {
		got, err := service.GetOrFetch(ctx, "films::Execute::all", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if values, ok := got.([]string); !ok || len(values) != 2 {
			t.Fatalf("unexpected cached value %#v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}

	stats := service.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("expected 2 hits and 1 miss, got %+v", stats)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
}

func TestSturdycService_ErrorsAreNotCached(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()
	errFetch := errors.New("store unavailable")

	_, err = service.GetOrFetch(ctx, "k", func(context.Context) (any, error) { return nil, errFetch })
	if !errors.Is(err, errFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	got, err := service.GetOrFetch(ctx, "k", constant("recovered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("expected a fresh fetch after a failure, got %v", got)
	}
}

func TestSturdycService_NilFetch(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	_, err = service.GetOrFetch(context.Background(), "nil-key", nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "fetchFn" {
		t.Errorf("expected fetchFn config error, got %v", err)
	}
}

func TestSturdycService_Delete(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	if _, err := service.GetOrFetch(ctx, "k", constant("old")); err != nil {
		t.Fatalf("failed to cache value: %v", err)
	}
	if err := service.Delete(ctx, "k"); err != nil {
		t.Errorf("expected no error from Delete but got: %v", err)
	}

	got, err := service.GetOrFetch(ctx, "k", constant("new"))
	if err != nil {
		t.Fatalf("failed to fetch after delete: %v", err)
	}
	if got != "new" {
		t.Errorf("expected refetched value, got %v", got)
	}

	if err := service.Delete(ctx, "missing"); err != nil {
		t.Errorf("expected no error deleting a missing key, got %v", err)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	keys := []string{
		"films::Execute::a",
		"films::Count::a",
		"filmsarchive::Execute::a",
		"shows::Execute::a",
	}
	for _, key := range keys {
		if _, err := service.GetOrFetch(ctx, key, constant(key)); err != nil {
			t.Fatalf("failed to cache %s: %v", key, err)
		}
	}

	removed, err := service.DeleteByPrefix(ctx, "films::")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed entries, got %d", removed)
	}

	for _, key := range keys {
		refetched := false
		_, err := service.GetOrFetch(ctx, key, func(context.Context) (any, error) {
			refetched = true
			return key, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantRefetch := key == "films::Execute::a" || key == "films::Count::a"
		if refetched != wantRefetch {
			t.Errorf("key %s: expected refetch=%v, got %v", key, wantRefetch, refetched)
		}
	}
}

func TestSturdycService_ConcurrentMissesShareFetch(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	var fetches atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		fetches.Add(1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := service.GetOrFetch(context.Background(), "shared", fetch)
			if err != nil || got != "value" {
				t.Errorf("worker %d: got %v, %v", i, got, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fetches.Load(); n != 1 {
		t.Errorf("expected a single fetch, got %d", n)
	}
	if stats := service.Stats(); stats.Hits+stats.Misses != 8 {
		t.Errorf("expected 8 lookups, got %s", fmt.Sprint(stats))
	}
}
