package query

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type title struct {
	Year   int    `json:"year"`
	Title  string `json:"title"`
	Rating float64
	Meta   map[string]any `json:"meta"`
}

func titles() []Entry[string, title] {
	return []Entry[string, title]{
		{Key: "1999", Value: title{Year: 1999, Title: "The Matrix", Rating: 8.7}},
		{Key: "2001", Value: title{Year: 2001, Title: "Spirited Away", Rating: 8.6, Meta: map[string]any{"lang": "ja"}}},
		{Key: "1994", Value: title{Year: 1994, Title: "Pulp Fiction", Rating: 8.9}},
		{Key: "2003", Value: title{Year: 2003, Title: "Oldboy", Rating: 8.4, Meta: map[string]any{"lang": "ko"}}},
		{Key: "1972", Value: title{Year: 1972, Title: "The Godfather", Rating: 9.2}},
	}
}

func TestFieldValue(t *testing.T) {
	v := title{Year: 2001, Title: "Spirited Away", Meta: map[string]any{"lang": "ja"}}

	got, ok := FieldValue(v, "year")
	require.True(t, ok)
	assert.Equal(t, 2001, got)

	got, ok = FieldValue(&v, "Title")
	require.True(t, ok)
	assert.Equal(t, "Spirited Away", got)

	got, ok = FieldValue(v, "rating")
	require.True(t, ok)
	assert.Equal(t, 0.0, got)

	got, ok = FieldValue(v, "meta.lang")
	require.True(t, ok)
	assert.Equal(t, "ja", got)

	_, ok = FieldValue(v, "missing")
	assert.False(t, ok)

	_, ok = FieldValue(map[string]any{"a": 1}, "b")
	assert.False(t, ok)
}

func TestCompareValues(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"mixed numeric kinds", int64(3), 2.5, 1},
		{"uint vs int", uint8(4), 4, 0},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"times", now, now.Add(time.Second), -1},
		{"nil first", nil, 0, -1},
		{"both nil", nil, nil, 0},
		{"fallback to text", []int{1}, []int{2}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareValues(tt.a, tt.b))
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		predicate Predicate[string, title]
		want      []string
	}{
		{"equal", Equal[string, title]("year", 1994), []string{"1994"}},
		{"not equal", NotEqual[string, title]("year", 1994), []string{"1999", "2001", "2003", "1972"}},
		{"greater than", GreaterThan[string, title]("year", 2000), []string{"2001", "2003"}},
		{"greater equal", GreaterEqual[string, title]("year", 2001), []string{"2001", "2003"}},
		{"less than", LessThan[string, title]("rating", 8.6), []string{"2003"}},
		{"less equal", LessEqual[string, title]("rating", 8.6), []string{"2001", "2003"}},
		{"between", Between[string, title]("year", 1990, 2000), []string{"1999", "1994"}},
		{"in", In[string, title]("title", "Oldboy", "The Godfather"), []string{"2003", "1972"}},
		{"key in", KeyIn[string, title]("1972", "1999"), []string{"1999", "1972"}},
		{"like", Like[string, title]("title", "The %"), []string{"1999", "1972"}},
		{"like single char", Like[string, title]("title", "Old_oy"), []string{"2003"}},
		{"ilike", ILike[string, title]("title", "the%"), []string{"1999", "1972"}},
		{"nested map field", Equal[string, title]("meta.lang", "ko"), []string{"2003"}},
		{"and", And(GreaterThan[string, title]("year", 1990), LessThan[string, title]("rating", 8.8)), []string{"1999", "2001", "2003"}},
		{"or", Or(Equal[string, title]("year", 1972), Equal[string, title]("year", 2003)), []string{"2003", "1972"}},
		{"not", Not(GreaterThan[string, title]("year", 1980)), []string{"1972"}},
		{"all", All[string, title](), []string{"1999", "2001", "1994", "2003", "1972"}},
		{"empty or matches nothing", Or[string, title](), []string{}},
		{"func", Func(func(e Entry[string, title]) bool { return e.Key == "2001" }), []string{"2001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keys(Apply(titles(), tt.predicate))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_NilPredicateReturnsEverything(t *testing.T) {
	entries := titles()
	got := Apply(entries, nil)
	assert.Equal(t, entries, got)
}

func TestSortSpec_ComposesLeftToRight(t *testing.T) {
	entries := []Entry[string, title]{
		{Key: "a", Value: title{Year: 2000, Title: "B"}},
		{Key: "b", Value: title{Year: 1990, Title: "Z"}},
		{Key: "c", Value: title{Year: 2000, Title: "A"}},
		{Key: "d", Value: title{Year: 1990, Title: "A"}},
	}
	sort := NewSort[string, title]().By("year", Desc).By("title", Asc)
	require.Equal(t, 2, sort.ComparatorCount())

	got := Keys(Apply(entries, Predicate[string, title](NewSortedPaging(nil, sort, math.MaxInt))))
	assert.Equal(t, []string{"c", "a", "d", "b"}, got)
}

func TestSortSpec_NilIsEmpty(t *testing.T) {
	var sort *SortSpec[string, title]
	assert.Equal(t, 0, sort.ComparatorCount())
	assert.Equal(t, "sort()", sort.CacheKey())
	assert.Nil(t, sort.Rules())
}

func TestSortSpec_ThenComparing(t *testing.T) {
	byTitleLength := func(a, b Entry[string, title]) int {
		return len(a.Value.Title) - len(b.Value.Title)
	}
	sort := NewSort[string, title]().ThenComparing("title_length", Asc, byTitleLength)
	paging := NewSortedPaging(nil, sort, 2)

	got := Keys(Apply(titles(), Predicate[string, title](paging)))
	assert.Equal(t, []string{"2003", "1999"}, got)
	assert.Equal(t, `sort(custom("title_length"):asc)`, sort.CacheKey())
	assert.False(t, sort.IsStable())
}

func TestPagingPredicate_KeyOrderWithoutSort(t *testing.T) {
	paging := NewPaging[string, title](nil, 2)
	assert.Equal(t, 0, paging.Page())
	assert.Equal(t, 0, paging.ComparatorCount())

	var pages [][]string
	for i := 0; i < 4; i++ {
		pages = append(pages, Keys(Apply(titles(), Predicate[string, title](paging))))
		paging.NextPage()
	}

	assert.Equal(t, [][]string{
		{"1972", "1994"},
		{"1999", "2001"},
		{"2003"},
		{},
	}, pages)
}

func TestPagingPredicate_FiltersBeforeWindowing(t *testing.T) {
	paging := NewSortedPaging(GreaterThan[string, title]("year", 1980), NewSort[string, title]().By("rating", Desc), 2)
	assert.Equal(t, []string{"1994", "1999"}, Keys(Apply(titles(), Predicate[string, title](paging))))

	paging.NextPage()
	assert.Equal(t, []string{"2001", "2003"}, Keys(Apply(titles(), Predicate[string, title](paging))))
}

func TestPagingPredicate_Navigation(t *testing.T) {
	paging := NewPaging[string, title](nil, 10)
	paging.PreviousPage()
	assert.Equal(t, 0, paging.Page())

	paging.NextPage()
	paging.NextPage()
	assert.Equal(t, 2, paging.Page())

	paging.PreviousPage()
	assert.Equal(t, 1, paging.Page())

	paging.SetPage(7)
	assert.Equal(t, 7, paging.Page())

	paging.SetPage(-3)
	assert.Equal(t, 0, paging.Page())
}

func TestPagingPredicate_MaxIntPageSize(t *testing.T) {
	paging := NewSortedPaging(nil, NewSort[string, title]().By("year", Asc), math.MaxInt)
	got := Keys(Apply(titles(), Predicate[string, title](paging)))
	assert.Equal(t, []string{"1972", "1994", "1999", "2001", "2003"}, got)

	paging.NextPage()
	assert.Empty(t, Apply(titles(), Predicate[string, title](paging)))
}

func TestPagingPredicate_RejectsNonPositiveSize(t *testing.T) {
	assert.Panics(t, func() { NewPaging[string, title](nil, 0) })
}

func TestCacheKeys(t *testing.T) {
	p := And(Equal[string, title]("year", 1999), Not(Like[string, title]("title", "The%")))
	assert.Equal(t, `and[2]{eq("year",int(1999)),not(like("title","The%"))}`, p.(CacheKeyer).CacheKey())

	paging := NewSortedPaging(p, NewSort[string, title]().By("year", Desc), 10)
	paging.NextPage()
	assert.Equal(t, `paging(and[2]{eq("year",int(1999)),not(like("title","The%"))},sort("year":desc),10,1)`, paging.CacheKey())
}

func TestCacheKeys_Distinct(t *testing.T) {
	key := func(p Predicate[string, title]) string { return p.(CacheKeyer).CacheKey() }

	tests := []struct {
		name string
		a, b Predicate[string, title]
	}{
		{
			name: "in values containing commas",
			a:    In[string, title]("title", "a", "b"),
			b:    In[string, title]("title", "a,b"),
		},
		{
			name: "like patterns containing separators",
			a:    And(Like[string, title]("a", "x),like(b,y")),
			b:    And(Like[string, title]("a", "x"), Like[string, title]("b", "y")),
		},
		{
			name: "operand type",
			a:    Equal[string, title]("year", 1999),
			b:    Equal[string, title]("year", "1999"),
		},
		{
			name: "field containing separators",
			a:    Equal[string, title]("a,b", 1),
			b:    And(Equal[string, title]("a", 1), Equal[string, title]("b", 1)),
		},
		{
			name: "between bounds",
			a:    Between[string, title]("year", "1990,2000", "2010"),
			b:    Between[string, title]("year", "1990", "2000,2010"),
		},
		{
			name: "nested or",
			a:    Or(Equal[string, title]("a", 1), Or(Equal[string, title]("b", 2), Equal[string, title]("c", 3))),
			b:    Or(Or(Equal[string, title]("a", 1), Equal[string, title]("b", 2)), Equal[string, title]("c", 3)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, key(tt.a), key(tt.b))
		})
	}
}

func TestIsStable(t *testing.T) {
	fn := Func(func(Entry[string, title]) bool { return true })

	assert.True(t, IsStable[string, title](nil))
	assert.True(t, IsStable(Equal[string, title]("year", 1)))
	assert.False(t, IsStable(fn))
	assert.False(t, IsStable(And(Equal[string, title]("year", 1), fn)))
	assert.False(t, IsStable(Predicate[string, title](NewPaging(fn, 5))))
	assert.True(t, IsStable(Predicate[string, title](NewPaging(Equal[string, title]("year", 1), 5))))

	byLength := NewSort[string, title]().ThenComparing("length", Asc, func(a, b Entry[string, title]) int {
		return len(a.Value.Title) - len(b.Value.Title)
	})
	assert.False(t, IsStable(Predicate[string, title](NewSortedPaging(nil, byLength, 5))))
	assert.True(t, IsStable(Predicate[string, title](NewSortedPaging(nil, NewSort[string, title]().By("year", Asc), 5))))
}

func TestSortSpec_IsStable(t *testing.T) {
	var nilSort *SortSpec[string, title]
	assert.True(t, nilSort.IsStable())
	assert.True(t, NewSort[string, title]().By("year", Desc).IsStable())

	custom := NewSort[string, title]().By("year", Desc).ThenComparing("custom", Asc, func(a, b Entry[string, title]) int { return 0 })
	assert.False(t, custom.IsStable())
}
