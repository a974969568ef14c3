package query

import (
	"math"

	"github.com/sakif/puzzle-market/internal/model"
)

// FromSearch converts a listing-page search into a Filter and Sort. The sold
// status is left unset; callers decide whether sold adverts are listed.
//
// Piece bounds are integers, so a fractional minimum rounds up and a
// fractional maximum rounds down. Bounds beyond the INTEGER column range are
// clamped to it before conversion.
func FromSearch(p model.SearchParam) (Filter, Sort) {
	p = p.WithDefaults()

	f := Filter{Search: p.Search}
	switch p.Range {
	case model.RangePrice:
		f.MinPrice = p.RangeMin
		f.MaxPrice = p.RangeMax
	default:
		if p.RangeMin != nil {
			v := pieceBound(math.Ceil(*p.RangeMin))
			f.MinPieceAmount = &v
		}
		if p.RangeMax != nil {
			v := pieceBound(math.Floor(*p.RangeMax))
			f.MaxPieceAmount = &v
		}
	}

	return f, Sort{Field: p.OrderBy, Direction: p.Direction}
}

func pieceBound(f float64) int {
	return int(max(math.MinInt32, min(f, math.MaxInt32)))
}
