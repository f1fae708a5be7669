package mapinfra

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// redisAdapter stores each keyspace as one Redis hash. Hash fields hold msgpack encoded keys
// and hash values msgpack encoded values. Redis cannot run Go predicates so every query
// loads the hash and filters client side.
type redisAdapter[K comparable, V any] struct {
	client    redis.UniversalClient
	prefix    string
	isOwner   bool
	listeners listeners
	log       logrus.FieldLogger
}

// NewRedisAdapter opens a client for cfg. Several addresses connect in cluster mode.
func NewRedisAdapter[K comparable, V any](cfg store.RedisConfig, logger logrus.FieldLogger) *redisAdapter[K, V] {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addresses,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	a := NewRedisAdapterWithClient[K, V](client, cfg.KeyPrefix, logger)
	a.isOwner = true
	return a
}

// NewRedisAdapterWithClient uses an existing client. The client is not closed by Close.
func NewRedisAdapterWithClient[K comparable, V any](client redis.UniversalClient, prefix string, logger logrus.FieldLogger) *redisAdapter[K, V] {
	return &redisAdapter[K, V]{
		client: client,
		prefix: prefix,
		log:    orDiscard(logger),
	}
}

func (a *redisAdapter[K, V]) Collection(_ context.Context, name string) (store.Collection[K, V], error) {
	a.log.WithField("keyspace", name).Debug("redis collection opened")
	return &redisCollection[K, V]{
		name:    name,
		hashKey: a.prefix + name,
		client:  a.client,
		notify:  a.listeners.notify,
	}, nil
}

// Keyspaces scans for hashes under the key prefix.
func (a *redisAdapter[K, V]) Keyspaces(ctx context.Context) ([]string, error) {
	names := make(map[string]struct{})
	iter := a.client.Scan(ctx, 0, a.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names[strings.TrimPrefix(iter.Val(), a.prefix)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, store.BackendError(err, "", "scan")
	}
	return sortedNames(names), nil
}

func (a *redisAdapter[K, V]) OnChange(listener store.ChangeListener) {
	a.listeners.add(listener)
}

func (a *redisAdapter[K, V]) Close() error {
	if !a.isOwner || a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

type redisCollection[K comparable, V any] struct {
	name    string
	hashKey string
	client  redis.UniversalClient
	codec   codec[K, V]
	notify  func(keyspace string)
}

func (c *redisCollection[K, V]) Name() string { return c.name }

func (c *redisCollection[K, V]) Values(ctx context.Context) ([]V, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *redisCollection[K, V]) ValuesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]V, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *redisCollection[K, V]) KeysWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]K, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Keys(entries), nil
}

func (c *redisCollection[K, V]) EntriesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]query.Entry[K, V], error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return evaluate(entries, predicate), nil
}

func (c *redisCollection[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	field, err := c.codec.encodeKey(key)
	if err != nil {
		return zero, false, store.CodecError(err, c.name)
	}
	data, err := c.client.HGet(ctx, c.hashKey, string(field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, store.BackendError(err, c.name, "get")
	}
	v, err := c.codec.decodeValue(data)
	if err != nil {
		return zero, false, store.CodecError(err, c.name)
	}
	return v, true, nil
}

func (c *redisCollection[K, V]) Put(ctx context.Context, key K, value V) error {
	field, err := c.codec.encodeKey(key)
	if err != nil {
		return store.CodecError(err, c.name)
	}
	data, err := c.codec.encodeValue(value)
	if err != nil {
		return store.CodecError(err, c.name)
	}
	if err := c.client.HSet(ctx, c.hashKey, string(field), data).Err(); err != nil {
		return store.BackendError(err, c.name, "put")
	}
	c.notify(c.name)
	return nil
}

func (c *redisCollection[K, V]) Delete(ctx context.Context, key K) error {
	field, err := c.codec.encodeKey(key)
	if err != nil {
		return store.CodecError(err, c.name)
	}
	removed, err := c.client.HDel(ctx, c.hashKey, string(field)).Result()
	if err != nil {
		return store.BackendError(err, c.name, "delete")
	}
	if removed > 0 {
		c.notify(c.name)
	}
	return nil
}

func (c *redisCollection[K, V]) Size(ctx context.Context) (int, error) {
	n, err := c.client.HLen(ctx, c.hashKey).Result()
	if err != nil {
		return 0, store.BackendError(err, c.name, "size")
	}
	return int(n), nil
}

// load reads the whole hash. A missing hash is an empty collection.
func (c *redisCollection[K, V]) load(ctx context.Context) ([]query.Entry[K, V], error) {
	raw, err := c.client.HGetAll(ctx, c.hashKey).Result()
	if err != nil {
		return nil, store.BackendError(err, c.name, "scan")
	}

	entries := make([]query.Entry[K, V], 0, len(raw))
	for field, data := range raw {
		key, err := c.codec.decodeKey([]byte(field))
		if err != nil {
			return nil, store.CodecError(err, c.name)
		}
		value, err := c.codec.decodeValue([]byte(data))
		if err != nil {
			return nil, store.CodecError(err, c.name)
		}
		entries = append(entries, query.Entry[K, V]{Key: key, Value: value})
	}
	return entries, nil
}
