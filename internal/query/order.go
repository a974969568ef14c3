package query

import (
	"fmt"
	"strings"

	"github.com/sakif/puzzle-market/internal/model"
)

// TieBreak is appended to every advert ordering: unsold before sold, then
// newest first.
const TieBreak = "a.is_sold ASC, a.created_at DESC"

// Only these columns and keywords are ever interpolated into ORDER BY.
var (
	sortColumns = map[model.SortField]string{
		model.SortByPieceAmount: "a.piece_amount",
		model.SortByPrice:       "a.price",
		model.SortByCreatedAt:   "a.created_at",
	}
	sortKeywords = map[model.SortDirection]string{
		model.Ascending:  "ASC",
		model.Descending: "DESC",
	}
)

// Sort is an explicit ordering requested by the caller.
type Sort struct {
	Field     model.SortField
	Direction model.SortDirection
}

// OrderBy renders the ORDER BY list (without the keyword). The explicit sort,
// if any, comes first and TieBreak always follows. Unknown fields or
// directions are rejected rather than interpolated.
func OrderBy(s *Sort) (string, error) {
	if s == nil {
		return TieBreak, nil
	}

	col, ok := sortColumns[s.Field]
	if !ok {
		return "", fmt.Errorf("query: unsupported sort field %q", s.Field)
	}
	dir := model.Descending
	if s.Direction != "" {
		dir = s.Direction
	}
	kw, ok := sortKeywords[dir]
	if !ok {
		return "", fmt.Errorf("query: unsupported sort direction %q", s.Direction)
	}

	return col + " " + kw + ", " + TieBreak, nil
}

// ParseSortField validates a free-form field name, e.g. from a query string.
func ParseSortField(s string) (model.SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pieceamount", "piece_amount", "pieces":
		return model.SortByPieceAmount, nil
	case "price":
		return model.SortByPrice, nil
	case "createdat", "created_at", "created", "date":
		return model.SortByCreatedAt, nil
	}
	return "", fmt.Errorf("query: unknown sort field %q", s)
}

// ParseSortDirection validates a free-form direction.
func ParseSortDirection(s string) (model.SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return model.Ascending, nil
	case "desc", "descending":
		return model.Descending, nil
	}
	return "", fmt.Errorf("query: unknown sort direction %q", s)
}

// ParseRangeDimension validates the dimension a search range applies to.
func ParseRangeDimension(s string) (model.RangeDimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pieces", "pieceamount", "piece_amount":
		return model.RangePieces, nil
	case "price":
		return model.RangePrice, nil
	}
	return "", fmt.Errorf("query: unknown range dimension %q", s)
}
