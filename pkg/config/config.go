package config

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/cache"
	"github.com/goliatone/go-repository-keyvalue/engine"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/store"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix used by the mapquery command.
const EnvPrefix = "MAPQUERY"

// Config is the complete configuration of a query stack.
type Config struct {
	Store  store.Config   `mapstructure:"store"`
	Cache  cache.Config   `mapstructure:"cache"`
	Engine EngineConfig   `mapstructure:"engine"`
	Log    logging.Config `mapstructure:"log"`
}

// EngineConfig names the engine options. See engine.ParseOffsetPolicy and
// engine.ParsePageAdvance for accepted values.
type EngineConfig struct {
	OffsetPolicy string `mapstructure:"offset_policy"`
	PageAdvance  string `mapstructure:"page_advance"`
}

// Default returns an in-memory store with caching enabled and info logging.
func Default() Config {
	return Config{
		Store: store.DefaultConfig(),
		Cache: cache.DefaultConfig(),
		Engine: EngineConfig{
			OffsetPolicy: engine.OffsetTruncate.String(),
			PageAdvance:  engine.AdvanceSequential.String(),
		},
		Log: logging.DefaultConfig(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	_, err := c.Engine.Options()
	return err
}

// Options converts the engine section into engine options.
func (e EngineConfig) Options() ([]engine.Option, error) {
	policy, err := engine.ParseOffsetPolicy(e.OffsetPolicy)
	if err != nil {
		return nil, err
	}
	advance, err := engine.ParsePageAdvance(e.PageAdvance)
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithOffsetPolicy(policy), engine.WithPageAdvance(advance)}, nil
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file string
}

// WithFile reads path before the environment. A missing file is ignored.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
	}
}

// Load fills target from an optional config file and from environment variables named
// prefix + "_" + the upper cased key path, e.g. MAPQUERY_STORE_BACKEND for store.backend.
// The values already in target are the defaults, so callers usually pass a pointer to
// Default().
func Load(prefix string, target any, opts ...LoadOption) error {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return goerrors.New("config target must be a non-nil pointer to a struct", goerrors.CategoryValidation).
			WithTextCode("INVALID_CONFIG_TARGET")
	}

	v := viper.New()
	registerDefaults(v, "", rv.Elem())

	if o.file != "" {
		v.SetConfigFile(o.file)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "failed to read config file").
				WithTextCode("CONFIG_FILE_INVALID").
				WithMetadata(map[string]any{"file": o.file})
		}
	}

	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(target); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "failed to unmarshal config").
			WithTextCode("CONFIG_DECODE_FAILED")
	}
	return nil
}

// registerDefaults makes every tagged leaf known to viper so AutomaticEnv applies to it
// during Unmarshal. Nil pointers are skipped and keep their zero value unless a file sets
// them.
func registerDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" || name == "-" || !field.IsExported() {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv := rv.Field(i)
		switch {
		case fv.Kind() == reflect.Struct:
			registerDefaults(v, key, fv)
		case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct:
			if !fv.IsNil() {
				registerDefaults(v, key, fv.Elem())
			}
		default:
			v.SetDefault(key, fv.Interface())
		}
	}
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
