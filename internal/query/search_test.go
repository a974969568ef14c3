package query

import (
	"math"
	"testing"

	"github.com/sakif/puzzle-market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSearch_Defaults(t *testing.T) {
	f, s := FromSearch(model.SearchParam{})

	assert.True(t, f.IsEmpty())
	assert.Equal(t, Sort{Field: model.SortByCreatedAt, Direction: model.Descending}, s)
}

func TestFromSearch_PieceRangeRounds(t *testing.T) {
	f, _ := FromSearch(model.SearchParam{
		Search:   "lighthouse",
		Range:    model.RangePieces,
		RangeMin: ptr(99.2),
		RangeMax: ptr(500.9),
	})

	require.NotNil(t, f.MinPieceAmount)
	require.NotNil(t, f.MaxPieceAmount)
	assert.Equal(t, 100, *f.MinPieceAmount)
	assert.Equal(t, 500, *f.MaxPieceAmount)
	assert.Nil(t, f.MinPrice)
	assert.Nil(t, f.MaxPrice)
	assert.Equal(t, "lighthouse", f.Search)
	assert.Nil(t, f.IsSold)
}

func TestFromSearch_PieceRangeClamped(t *testing.T) {
	f, _ := FromSearch(model.SearchParam{
		Range:    model.RangePieces,
		RangeMin: ptr(1e20),
		RangeMax: ptr(-1e20),
	})

	require.NotNil(t, f.MinPieceAmount)
	require.NotNil(t, f.MaxPieceAmount)
	assert.Equal(t, math.MaxInt32, *f.MinPieceAmount, "a huge minimum must still match nothing")
	assert.Equal(t, math.MinInt32, *f.MaxPieceAmount)

	f, _ = FromSearch(model.SearchParam{RangeMin: ptr(-1e20), RangeMax: ptr(1e20)})
	assert.Equal(t, math.MinInt32, *f.MinPieceAmount)
	assert.Equal(t, math.MaxInt32, *f.MaxPieceAmount)
}

func TestFromSearch_PriceRange(t *testing.T) {
	f, s := FromSearch(model.SearchParam{
		OrderBy:   model.SortByPrice,
		Direction: model.Ascending,
		Range:     model.RangePrice,
		RangeMax:  ptr(25.5),
	})

	assert.Nil(t, f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, 25.5, *f.MaxPrice)
	assert.Nil(t, f.MinPieceAmount)
	assert.Equal(t, Sort{Field: model.SortByPrice, Direction: model.Ascending}, s)
}

func TestSet(t *testing.T) {
	b := NewBinder(Postgres)
	b.Bind("user_id", int64(1))

	got := Set(b, []Assignment{{"email", "a@b.c"}, {"phone_number", "123"}})

	assert.Equal(t, "email = $2, phone_number = $3", got)
	assert.Equal(t, []any{int64(1), "a@b.c", "123"}, b.Args())
	assert.Equal(t, "", Set(NewBinder(SQLite), nil))
}
