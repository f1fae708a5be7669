package repository

import (
	"context"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/engine"
	"github.com/goliatone/go-repository-keyvalue/internal/mapinfra"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Film struct {
	Name  string `json:"name"`
	Genre string `json:"genre"`
	Year  int    `json:"year"`
}

type archived struct {
	Name string
}

func (archived) Keyspace() string { return "film_archive" }

func seededRepository(t *testing.T, opts ...Option) *Repository[string, Film] {
	t.Helper()
	ctx := context.Background()
	adapter := mapinfra.NewMemoryAdapter[string, Film](4, 2, nil)
	collection, err := adapter.Collection(ctx, "films")
	require.NoError(t, err)

	genres := []string{"drama", "comedy", "horror"}
	for i := range 12 {
		film := Film{Name: fmt.Sprintf("film-%02d", i), Genre: genres[i%3], Year: 2000 + i}
		require.NoError(t, collection.Put(ctx, film.Name, film))
	}
	return New[string, Film](engine.New[string, Film](adapter), opts...)
}

func TestNew_Keyspace(t *testing.T) {
	adapter := mapinfra.NewMemoryAdapter[string, Film](1, 1, nil)
	executor := engine.New[string, Film](adapter)

	assert.Equal(t, "films", New[string, Film](executor).Keyspace())
	assert.Equal(t, "classics", New[string, Film](executor, WithKeyspace("classics")).Keyspace())
	assert.Equal(t, "films", New[string, Film](executor, WithKeyspace("")).Keyspace())

	archive := New[string, archived](engine.New[string, archived](mapinfra.NewMemoryAdapter[string, archived](1, 1, nil)))
	assert.Equal(t, "film_archive", archive.Keyspace())
}

func TestRepository_FindBy(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)

	dramas, err := repo.FindBy(ctx, Query[string, Film]{
		Criteria: query.Equal[string, Film]("genre", "drama"),
		Sort:     query.NewSort[string, Film]().By("year", query.Desc),
		Rows:     Unpaged,
	})
	require.NoError(t, err)
	require.Len(t, dramas, 4)
	assert.Equal(t, "film-09", dramas[0].Name)
	assert.Equal(t, "film-00", dramas[3].Name)

	window, err := repo.FindBy(ctx, Query[string, Film]{
		Sort:   query.NewSort[string, Film]().By("year", query.Asc),
		Offset: 4,
		Rows:   2,
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, []int{2004, 2005}, []int{window[0].Year, window[1].Year})
}

func TestRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)

	all, err := repo.FindAll(ctx, query.NewSort[string, Film]().By("name", query.Desc))
	require.NoError(t, err)
	require.Len(t, all, 12)
	assert.Equal(t, "film-11", all[0].Name)

	unsorted, err := repo.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, all, unsorted)
}

func TestRepository_CountBy(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)

	count, err := repo.CountBy(ctx, query.GreaterEqual[string, Film]("year", 2008))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	count, err = repo.CountBy(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestRepository_FindPage(t *testing.T) {
	ctx := context.Background()
	repo := seededRepository(t)
	byYear := query.NewSort[string, Film]().By("year", query.Asc)
	recent := query.GreaterEqual[string, Film]("year", 2003)

	tests := []struct {
		name      string
		request   PageRequest[string, Film]
		wantYears []int
		wantPages int
		wantNext  bool
	}{
		{"first page", PageRequest[string, Film]{Number: 0, Size: 4, Sort: byYear}, []int{2003, 2004, 2005, 2006}, 3, true},
		{"last page", PageRequest[string, Film]{Number: 2, Size: 4, Sort: byYear}, []int{2011}, 3, false},
		{"past the end", PageRequest[string, Film]{Number: 5, Size: 4, Sort: byYear}, nil, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.FindPage(ctx, recent, tt.request)
			require.NoError(t, err)

			years := make([]int, 0, len(page.Items))
			for _, f := range page.Items {
				years = append(years, f.Year)
			}
			if tt.wantYears == nil {
				assert.Empty(t, years)
			} else {
				assert.Equal(t, tt.wantYears, years)
			}
			assert.Equal(t, int64(9), page.Total)
			assert.Equal(t, tt.request.Number, page.Number)
			assert.Equal(t, tt.wantPages, page.TotalPages())
			assert.Equal(t, tt.wantNext, page.HasNext())
		})
	}
}

func TestRepository_FindPageRejectsBadRequests(t *testing.T) {
	repo := seededRepository(t)

	for _, req := range []PageRequest[string, Film]{{Number: 0, Size: 0}, {Number: -1, Size: 10}} {
		_, err := repo.FindPage(context.Background(), nil, req)
		require.Error(t, err)
		assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
	}
}

func TestPage_TotalPages(t *testing.T) {
	assert.Equal(t, 0, Page[Film]{}.TotalPages())
	assert.Equal(t, 1, Page[Film]{Size: 10, Total: 10}.TotalPages())
	assert.Equal(t, 2, Page[Film]{Size: 10, Total: 11}.TotalPages())
}
