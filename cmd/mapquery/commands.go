package main

import (
	"context"

	"github.com/goliatone/go-repository-keyvalue/repository"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	where string
	sort  string
}

func (q *queryFlags) bind(cmd *cobra.Command, withSort bool) {
	cmd.Flags().StringVarP(&q.where, "where", "w", "", "CEL expression over key and value")
	if withSort {
		cmd.Flags().StringVarP(&q.sort, "sort", "s", "", `sort rules, e.g. "year:desc,title"`)
	}
}

func newFindCmd(flags *globalFlags) *cobra.Command {
	var (
		q      queryFlags
		offset int64
		rows   int
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "List the values matching a query",
		Args:  cobra.NoArgs,
	}
	q.bind(cmd, true)
	cmd.Flags().Int64Var(&offset, "offset", 0, "number of results to skip")
	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "maximum number of results, 0 for all")

	cmd.RunE = withSession(flags, func(ctx context.Context, s *session) (any, error) {
		criteria, err := s.criteria(q.where)
		if err != nil {
			return nil, err
		}
		sort, err := s.sort(q.sort)
		if err != nil {
			return nil, err
		}
		values, err := s.stack.Executor().Execute(ctx, criteria, sort, offset, rows, s.keyspace)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []Record{}
		}
		return values, nil
	})
	return cmd
}

func newPageCmd(flags *globalFlags) *cobra.Command {
	var (
		q    queryFlags
		page int
		size int
	)

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Fetch one page of results together with the total count",
		Args:  cobra.NoArgs,
	}
	q.bind(cmd, true)
	cmd.Flags().IntVarP(&page, "page", "p", 0, "zero based page number")
	cmd.Flags().IntVar(&size, "size", 10, "page size")

	cmd.RunE = withSession(flags, func(ctx context.Context, s *session) (any, error) {
		criteria, err := s.criteria(q.where)
		if err != nil {
			return nil, err
		}
		sort, err := s.sort(q.sort)
		if err != nil {
			return nil, err
		}
		repo := s.stack.Repository(repository.WithKeyspace(s.keyspace))
		result, err := repo.FindPage(ctx, criteria, repository.PageRequest[string, Record]{
			Number: page,
			Size:   size,
			Sort:   sort,
		})
		if err != nil {
			return nil, err
		}
		if result.Items == nil {
			result.Items = []Record{}
		}
		return result, nil
	})
	return cmd
}

func newCountCmd(flags *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the values matching a query",
		Args:  cobra.NoArgs,
	}
	q.bind(cmd, false)

	cmd.RunE = withSession(flags, func(ctx context.Context, s *session) (any, error) {
		criteria, err := s.criteria(q.where)
		if err != nil {
			return nil, err
		}
		count, err := s.stack.Executor().Count(ctx, criteria, s.keyspace)
		if err != nil {
			return nil, err
		}
		return map[string]any{"keyspace": s.keyspace, "count": count}, nil
	})
	return cmd
}

type keyspaceSummary struct {
	Keyspace string `json:"keyspace" yaml:"keyspace"`
	Entries  int    `json:"entries" yaml:"entries"`
}

func newKeyspacesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keyspaces",
		Short: "List the keyspaces defined by the fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			fixture, err := flags.fixtureData()
			if err != nil {
				return err
			}
			out := make([]keyspaceSummary, 0, len(fixture))
			for _, name := range fixture.Keyspaces() {
				out = append(out, keyspaceSummary{Keyspace: name, Entries: len(fixture[name])})
			}
			return render(cmd.OutOrStdout(), flags.format, out)
		},
	}
}
