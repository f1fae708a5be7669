package di

import (
	"github.com/goliatone/go-repository-keyvalue/cache"
	"github.com/goliatone/go-repository-keyvalue/engine"
	"github.com/goliatone/go-repository-keyvalue/internal/mapinfra"
	"github.com/goliatone/go-repository-keyvalue/pkg/config"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/querycache"
	"github.com/goliatone/go-repository-keyvalue/repository"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/sirupsen/logrus"
)

// Container provides dependency injection for the query stack.
// It owns the logger, the cache service and the key serializer shared by every stack it
// builds, and provides factory functions for typed stacks and repositories.
type Container struct {
	config        config.Config
	logger        logrus.FieldLogger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	engineOptions []engine.Option
}

// Option configures a Container.
type Option func(*Container)

// WithLogger replaces the logger built from the log section of the configuration.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Container) {
		if serializer != nil {
			c.keySerializer = serializer
		}
	}
}

// NewContainer validates cfg and creates the shared components. The cache service is only
// created when caching is enabled.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engineOptions, err := cfg.Engine.Options()
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
		engineOptions: engineOptions,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New(cfg.Log)
	}

	if cfg.Cache.Enabled {
		service, err := cache.NewCacheService(cfg.Cache)
		if err != nil {
			return nil, err
		}
		c.cacheService = service
	}

	return c, nil
}

// NewContainerWithDefaults creates a container from config.Default.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

// CacheService returns the shared cache service, nil when caching is disabled.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the container logger.
func (c *Container) Logger() logrus.FieldLogger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Stack is the wired query stack for one key and value type.
type Stack[K comparable, V any] struct {
	// Adapter is the store backend. Writes go through its collections.
	Adapter store.Adapter[K, V]
	// Engine is the uncached query composer.
	Engine *engine.Engine[K, V]
	// Cache is the caching decorator, nil when caching is disabled.
	Cache *querycache.CachedEngine[K, V]
}

// Executor returns the cached engine when caching is enabled and the plain engine otherwise.
func (s *Stack[K, V]) Executor() engine.Executor[K, V] {
	if s.Cache != nil {
		return s.Cache
	}
	return s.Engine
}

// Repository returns a repository over the stack executor.
func (s *Stack[K, V]) Repository(opts ...repository.Option) *repository.Repository[K, V] {
	return repository.New[K, V](s.Executor(), opts...)
}

// Close releases the store backend.
func (s *Stack[K, V]) Close() error {
	return s.Adapter.Close()
}

// NewStack opens the configured store for K and V and wires engine and cache on top of it.
// The cache is subscribed to store writes so results never outlive a Put or Delete made
// through Adapter.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewStack[string, Film](container)
func NewStack[K comparable, V any](c *Container) (*Stack[K, V], error) {
	adapter, err := mapinfra.NewAdapter[K, V](c.config.Store, c.logger)
	if err != nil {
		return nil, err
	}
	return NewStackWithAdapter(c, adapter), nil
}

// NewStackWithAdapter wires engine and cache on top of an existing adapter.
func NewStackWithAdapter[K comparable, V any](c *Container, adapter store.Adapter[K, V]) *Stack[K, V] {
	opts := append([]engine.Option{engine.WithLogger(c.logger)}, c.engineOptions...)
	stack := &Stack[K, V]{
		Adapter: adapter,
		Engine:  engine.New(adapter, opts...),
	}

	if c.cacheService != nil {
		stack.Cache = querycache.New[K, V](stack.Engine, c.cacheService, c.keySerializer, querycache.WithLogger(c.logger))
		stack.Cache.Subscribe(adapter)
	}
	return stack
}

// NewRepository opens a stack and returns a repository bound to the keyspace of V, together
// with the stack so callers can write through its adapter.
func NewRepository[K comparable, V any](c *Container, opts ...repository.Option) (*repository.Repository[K, V], *Stack[K, V], error) {
	stack, err := NewStack[K, V](c)
	if err != nil {
		return nil, nil, err
	}
	return stack.Repository(opts...), stack, nil
}

// NewAdapter opens the store backend selected by cfg. It is the public entry point to the
// backends for callers outside this module.
func NewAdapter[K comparable, V any](cfg store.Config, logger logrus.FieldLogger) (store.Adapter[K, V], error) {
	return mapinfra.NewAdapter[K, V](cfg, logger)
}
