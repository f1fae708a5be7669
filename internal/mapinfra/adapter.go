package mapinfra

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/sirupsen/logrus"
)

// NewAdapter validates cfg and opens the selected backend.
func NewAdapter[K comparable, V any](cfg store.Config, logger logrus.FieldLogger) (store.Adapter[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = orDiscard(logger)

	switch cfg.Backend {
	case store.BackendRedis:
		return NewRedisAdapter[K, V](cfg.Redis, logger), nil
	case store.BackendSQL:
		return NewSQLAdapter[K, V](context.Background(), cfg.SQL, logger)
	default:
		return NewMemoryAdapter[K, V](cfg.Partitions, cfg.Parallelism, logger), nil
	}
}

func orDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}

// listeners fans change notifications out to subscribers.
type listeners struct {
	mu  sync.RWMutex
	fns []store.ChangeListener
}

func (l *listeners) add(fn store.ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = append(l.fns, fn)
}

func (l *listeners) notify(keyspace string) {
	l.mu.RLock()
	fns := append([]store.ChangeListener(nil), l.fns...)
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(keyspace)
	}
}

// evaluate applies predicate to a full entry set loaded from a backend that cannot filter
// on its own.
func evaluate[K comparable, V any](entries []query.Entry[K, V], predicate query.Predicate[K, V]) []query.Entry[K, V] {
	return query.Apply(entries, predicate)
}

func sortedNames(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
