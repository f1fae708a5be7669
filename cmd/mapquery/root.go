package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/criteria"
	"github.com/goliatone/go-repository-keyvalue/internal/seed"
	"github.com/goliatone/go-repository-keyvalue/pkg/config"
	"github.com/goliatone/go-repository-keyvalue/pkg/di"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Record is the value type of every keyspace the CLI loads.
type Record = map[string]any

type globalFlags struct {
	configFile string
	fixture    string
	keyspace   string
	format     string
	logLevel   string
}

// session is one wired stack seeded from the fixture.
type session struct {
	stack    *di.Stack[string, Record]
	cel      *criteria.CELAccessor[string, Record]
	keyspace string
	log      logrus.FieldLogger
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "mapquery",
		Short:         "Query keyspaces seeded from a YAML fixture",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&flags.fixture, "fixture", "", "YAML fixture to seed the store with")
	pf.StringVarP(&flags.keyspace, "keyspace", "k", "", "keyspace to query")
	pf.StringVarP(&flags.format, "output", "o", "json", "output format: json or yaml")
	pf.StringVar(&flags.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		newFindCmd(flags),
		newPageCmd(flags),
		newCountCmd(flags),
		newKeyspacesCmd(flags),
	)
	return rootCmd
}

func (f *globalFlags) config() (config.Config, error) {
	cfg := config.Default()
	var opts []config.LoadOption
	if f.configFile != "" {
		opts = append(opts, config.WithFile(f.configFile))
	}
	if err := config.Load(config.EnvPrefix, &cfg, opts...); err != nil {
		return cfg, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

func (f *globalFlags) fixtureData() (seed.Fixture[string, Record], error) {
	if f.fixture == "" {
		return nil, goerrors.New("--fixture is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_FIXTURE")
	}
	return seed.LoadFile[string, Record](f.fixture)
}

// open loads config and fixture, wires a stack and seeds it.
func (f *globalFlags) open(cmd *cobra.Command) (*session, error) {
	if f.keyspace == "" {
		return nil, goerrors.New("--keyspace is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_KEYSPACE")
	}

	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	fixture, err := f.fixtureData()
	if err != nil {
		return nil, err
	}

	logger := logging.NewWithOutput(cfg.Log, cmd.ErrOrStderr()).WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"command":    cmd.Name(),
		"keyspace":   f.keyspace,
	})

	container, err := di.NewContainer(cfg, di.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	stack, err := di.NewStack[string, Record](container)
	if err != nil {
		return nil, err
	}

	seeded, err := fixture.Apply(cmd.Context(), stack.Adapter)
	if err != nil {
		stack.Close()
		return nil, err
	}
	logger.WithField("entries", seeded).Debug("store seeded")

	cel, err := criteria.NewCELAccessor[string, Record](logger)
	if err != nil {
		stack.Close()
		return nil, err
	}

	return &session{stack: stack, cel: cel, keyspace: f.keyspace, log: logger}, nil
}

func (s *session) Close() error {
	return s.stack.Close()
}

func (s *session) criteria(where string) (query.Predicate[string, Record], error) {
	return s.cel.Compile(where)
}

func (s *session) sort(spec string) (*query.SortSpec[string, Record], error) {
	sort, err := criteria.ParseSort[string, Record](spec)
	if err != nil || sort.ComparatorCount() == 0 {
		return nil, err
	}
	return sort, nil
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "json", "yaml", "yml":
		return nil
	}
	return goerrors.New(fmt.Sprintf("unknown output format %q", format), goerrors.CategoryValidation).
		WithTextCode("INVALID_OUTPUT_FORMAT")
}

func render(w io.Writer, format string, v any) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func withSession(flags *globalFlags, fn func(ctx context.Context, s *session) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(flags.format); err != nil {
			return err
		}
		s, err := flags.open(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := fn(cmd.Context(), s)
		if err != nil {
			s.log.WithError(err).Debug("command failed")
			return err
		}
		return render(cmd.OutOrStdout(), flags.format, out)
	}
}
