package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestWhere_EmptyFilter(t *testing.T) {
	b := NewBinder(SQLite)

	assert.Equal(t, "", Where(b, Filter{}))
	assert.Empty(t, b.Args())
	assert.True(t, Filter{}.IsEmpty())
}

func TestWhere_WhitespaceSearchIsIgnored(t *testing.T) {
	b := NewBinder(SQLite)

	assert.Equal(t, "", Where(b, Filter{Search: "   "}))
	assert.Zero(t, b.Len())
	assert.True(t, Filter{Search: " \t"}.IsEmpty())
}

func TestWhere_AllFilters_SQLite(t *testing.T) {
	b := NewBinder(SQLite)
	f := Filter{
		IsSold:         ptr(false),
		Search:         "castle",
		Username:       "alice",
		OwnerID:        ptr(int64(3)),
		AdvertID:       ptr(int64(9)),
		MinPrice:       ptr(1.5),
		MaxPrice:       ptr(20.0),
		MinPieceAmount: ptr(500),
		MaxPieceAmount: ptr(1000),
	}

	got := Where(b, f)

	want := "a.is_sold = ?1 AND u.username = ?2 AND a.user_id = ?3 AND a.advert_id = ?4" +
		" AND a.price >= ?5 AND a.price <= ?6 AND a.piece_amount >= ?7 AND a.piece_amount <= ?8" +
		` AND (casefold(a.title) LIKE casefold(?9) ESCAPE '\' OR casefold(a.description) LIKE casefold(?9) ESCAPE '\')`
	assert.Equal(t, want, got)
	assert.Equal(t, []any{false, "alice", int64(3), int64(9), 1.5, 20.0, 500, 1000, "%castle%"}, b.Args())
}

func TestWhere_Postgres(t *testing.T) {
	b := NewBinder(Postgres)

	got := Where(b, Filter{IsSold: ptr(true), Search: "sea"})

	assert.Equal(t, `a.is_sold = $1 AND (a.title ILIKE $2 ESCAPE '\' OR a.description ILIKE $2 ESCAPE '\')`, got)
	assert.Equal(t, []any{true, "%sea%"}, b.Args())
}

// Each present filter must produce exactly one condition and exactly one
// binding with the matching name; absent filters produce neither.
func TestWhere_BindingsMirrorConditions(t *testing.T) {
	type setter struct {
		name string
		set  func(*Filter)
	}
	setters := []setter{
		{ParamIsSold, func(f *Filter) { f.IsSold = ptr(false) }},
		{ParamUsername, func(f *Filter) { f.Username = "bob" }},
		{ParamOwnerID, func(f *Filter) { f.OwnerID = ptr(int64(1)) }},
		{ParamAdvertID, func(f *Filter) { f.AdvertID = ptr(int64(2)) }},
		{ParamMinPrice, func(f *Filter) { f.MinPrice = ptr(0.0) }},
		{ParamMaxPrice, func(f *Filter) { f.MaxPrice = ptr(0.0) }},
		{ParamMinPieceAmount, func(f *Filter) { f.MinPieceAmount = ptr(0) }},
		{ParamMaxPieceAmount, func(f *Filter) { f.MaxPieceAmount = ptr(0) }},
		{ParamSearch, func(f *Filter) { f.Search = "x" }},
	}

	// Walk every subset of the nine filters.
	for mask := 0; mask < 1<<len(setters); mask++ {
		var f Filter
		var wantNames []string
		for i, s := range setters {
			if mask&(1<<i) != 0 {
				s.set(&f)
				wantNames = append(wantNames, s.name)
			}
		}

		b := NewBinder(SQLite)
		pred := Where(b, f)

		require.ElementsMatch(t, wantNames, b.Names(), "mask %b", mask)
		if len(wantNames) == 0 {
			require.Equal(t, "", pred)
			continue
		}
		require.Len(t, strings.Split(pred, " AND "), len(wantNames), "mask %b: %s", mask, pred)
		for i := 1; i <= b.Len(); i++ {
			require.Contains(t, pred, SQLite.Placeholder(i), "mask %b", mask)
		}
		require.NotContains(t, pred, SQLite.Placeholder(b.Len()+1))
		if f.Search != "" {
			require.Equal(t, 1, strings.Count(pred, " OR "))
			require.True(t, strings.HasSuffix(pred, ")"), "search group must come last: %s", pred)
		}
	}
}

func TestWhere_ContinuesNumberingFromSharedBinder(t *testing.T) {
	b := NewBinder(Postgres)
	b.Bind("first", 1)

	got := Where(b, Filter{Username: "carol"})

	assert.Equal(t, "u.username = $2", got)
	assert.Equal(t, []string{"first", ParamUsername}, b.Names())
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"castle", "%castle%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPattern(tt.term))
		})
	}
}
