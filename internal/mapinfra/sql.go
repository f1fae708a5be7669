package mapinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/goliatone/go-repository-keyvalue/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// entryRow is one map entry persisted by the SQL backend.
type entryRow struct {
	bun.BaseModel `bun:"table:map_entries,alias:me"`

	Keyspace string `bun:"keyspace,pk"`
	EntryKey []byte `bun:"entry_key,pk"`
	Value    []byte `bun:"value,notnull"`
}

// sqlAdapter keeps all keyspaces in a single table keyed by (keyspace, entry_key).
// Predicates run in process over the rows of one keyspace.
type sqlAdapter[K comparable, V any] struct {
	db        *bun.DB
	isOwner   bool
	listeners listeners
	log       logrus.FieldLogger
}

// NewSQLAdapter opens cfg.DSN and creates the entry table when missing.
func NewSQLAdapter[K comparable, V any](ctx context.Context, cfg store.SQLConfig, logger logrus.FieldLogger) (store.Adapter[K, V], error) {
	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, store.BackendError(err, "", "open")
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)

	a, err := NewSQLAdapterWithDB[K, V](ctx, bun.NewDB(sqldb, sqlitedialect.New()), logger)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	a.isOwner = true
	return a, nil
}

// NewSQLAdapterWithDB uses an existing bun database. The database is not closed by Close.
func NewSQLAdapterWithDB[K comparable, V any](ctx context.Context, db *bun.DB, logger logrus.FieldLogger) (*sqlAdapter[K, V], error) {
	_, err := db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return nil, store.BackendError(err, "", "create table")
	}
	return &sqlAdapter[K, V]{db: db, log: orDiscard(logger)}, nil
}

func (a *sqlAdapter[K, V]) Collection(_ context.Context, name string) (store.Collection[K, V], error) {
	return &sqlCollection[K, V]{
		name:   name,
		db:     a.db,
		notify: a.listeners.notify,
		log:    a.log.WithField("keyspace", name),
	}, nil
}

func (a *sqlAdapter[K, V]) Keyspaces(ctx context.Context) ([]string, error) {
	var names []string
	err := a.db.NewSelect().
		Model((*entryRow)(nil)).
		ColumnExpr("DISTINCT keyspace").
		Order("keyspace").
		Scan(ctx, &names)
	if err != nil {
		return nil, store.BackendError(err, "", "keyspaces")
	}
	return names, nil
}

func (a *sqlAdapter[K, V]) OnChange(listener store.ChangeListener) {
	a.listeners.add(listener)
}

func (a *sqlAdapter[K, V]) Close() error {
	if !a.isOwner {
		return nil
	}
	return a.db.Close()
}

type sqlCollection[K comparable, V any] struct {
	name   string
	db     *bun.DB
	codec  codec[K, V]
	notify func(keyspace string)
	log    logrus.FieldLogger
}

func (c *sqlCollection[K, V]) Name() string { return c.name }

func (c *sqlCollection[K, V]) Values(ctx context.Context) ([]V, error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *sqlCollection[K, V]) ValuesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]V, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Values(entries), nil
}

func (c *sqlCollection[K, V]) KeysWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]K, error) {
	entries, err := c.EntriesWhere(ctx, predicate)
	if err != nil {
		return nil, err
	}
	return query.Keys(entries), nil
}

func (c *sqlCollection[K, V]) EntriesWhere(ctx context.Context, predicate query.Predicate[K, V]) ([]query.Entry[K, V], error) {
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return evaluate(entries, predicate), nil
}

func (c *sqlCollection[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	encoded, err := c.codec.encodeKey(key)
	if err != nil {
		return zero, false, store.CodecError(err, c.name)
	}

	row := new(entryRow)
	err = c.db.NewSelect().
		Model(row).
		Where("keyspace = ?", c.name).
		Where("entry_key = ?", encoded).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, store.BackendError(err, c.name, "get")
	}

	v, err := c.codec.decodeValue(row.Value)
	if err != nil {
		return zero, false, store.CodecError(err, c.name)
	}
	return v, true, nil
}

func (c *sqlCollection[K, V]) Put(ctx context.Context, key K, value V) error {
	encodedKey, err := c.codec.encodeKey(key)
	if err != nil {
		return store.CodecError(err, c.name)
	}
	encodedValue, err := c.codec.encodeValue(value)
	if err != nil {
		return store.CodecError(err, c.name)
	}

	row := &entryRow{Keyspace: c.name, EntryKey: encodedKey, Value: encodedValue}
	_, err = c.db.NewInsert().
		Model(row).
		On("CONFLICT (keyspace, entry_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return store.BackendError(err, c.name, "put")
	}
	c.notify(c.name)
	return nil
}

func (c *sqlCollection[K, V]) Delete(ctx context.Context, key K) error {
	encoded, err := c.codec.encodeKey(key)
	if err != nil {
		return store.CodecError(err, c.name)
	}

	res, err := c.db.NewDelete().
		Model((*entryRow)(nil)).
		Where("keyspace = ?", c.name).
		Where("entry_key = ?", encoded).
		Exec(ctx)
	if err != nil {
		return store.BackendError(err, c.name, "delete")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.notify(c.name)
	}
	return nil
}

func (c *sqlCollection[K, V]) Size(ctx context.Context) (int, error) {
	n, err := c.db.NewSelect().
		Model((*entryRow)(nil)).
		Where("keyspace = ?", c.name).
		Count(ctx)
	if err != nil {
		return 0, store.BackendError(err, c.name, "size")
	}
	return n, nil
}

// load reads the rows of the keyspace ordered by their encoded key.
func (c *sqlCollection[K, V]) load(ctx context.Context) ([]query.Entry[K, V], error) {
	var rows []entryRow
	err := c.db.NewSelect().
		Model(&rows).
		Where("keyspace = ?", c.name).
		Order("entry_key").
		Scan(ctx)
	if err != nil {
		return nil, store.BackendError(err, c.name, "scan")
	}

	entries := make([]query.Entry[K, V], 0, len(rows))
	for _, row := range rows {
		key, err := c.codec.decodeKey(row.EntryKey)
		if err != nil {
			return nil, store.CodecError(err, c.name)
		}
		value, err := c.codec.decodeValue(row.Value)
		if err != nil {
			return nil, store.CodecError(err, c.name)
		}
		entries = append(entries, query.Entry[K, V]{Key: key, Value: value})
	}
	c.log.WithField("rows", len(rows)).Debug("keyspace loaded")
	return entries, nil
}
