package model

// SortField names a column an advert listing can be ordered by.
type SortField string

const (
	SortByPieceAmount SortField = "pieceAmount"
	SortByPrice       SortField = "price"
	SortByCreatedAt   SortField = "createdAt"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// RangeDimension selects which attribute SearchParam's bounds apply to.
type RangeDimension string

const (
	RangePieces RangeDimension = "pieces"
	RangePrice  RangeDimension = "price"
)

// SearchParam describes one search request from the listing page. It is
// built per request and never stored. Zero values mean "newest first, range
// over piece count, no bounds".
type SearchParam struct {
	Search    string         `json:"search"`
	OrderBy   SortField      `json:"orderBy"`
	Direction SortDirection  `json:"direction"`
	Range     RangeDimension `json:"range"`
	RangeMin  *float64       `json:"rangeMin,omitempty"`
	RangeMax  *float64       `json:"rangeMax,omitempty"`
}

// WithDefaults returns a copy with empty enum fields filled in.
func (p SearchParam) WithDefaults() SearchParam {
	if p.OrderBy == "" {
		p.OrderBy = SortByCreatedAt
	}
	if p.Direction == "" {
		p.Direction = Descending
	}
	if p.Range == "" {
		p.Range = RangePieces
	}
	return p
}
