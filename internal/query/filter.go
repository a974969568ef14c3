package query

import "strings"

// Filter is the typed set of optional advert conditions. A nil pointer or an
// empty string means "no condition"; it never means "match the zero value".
type Filter struct {
	IsSold         *bool
	Search         string
	Username       string
	OwnerID        *int64
	AdvertID       *int64
	MinPrice       *float64
	MaxPrice       *float64
	MinPieceAmount *int
	MaxPieceAmount *int
}

// Bound parameter names, one per filter that can produce a condition.
const (
	ParamIsSold         = "isSold"
	ParamUsername       = "username"
	ParamOwnerID        = "ownerId"
	ParamAdvertID       = "advertId"
	ParamMinPrice       = "minPrice"
	ParamMaxPrice       = "maxPrice"
	ParamMinPieceAmount = "minPieceAmount"
	ParamMaxPieceAmount = "maxPieceAmount"
	ParamSearch         = "search"
)

// IsEmpty reports whether the filter would render no predicate at all.
func (f Filter) IsEmpty() bool {
	return f.IsSold == nil && strings.TrimSpace(f.Search) == "" && f.Username == "" &&
		f.OwnerID == nil && f.AdvertID == nil &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinPieceAmount == nil && f.MaxPieceAmount == nil
}

// Where renders f as a predicate over the adverts table (alias a) joined to
// user_accounts (alias u), binding one argument per present filter.
//
// Scalar conditions come first in a fixed order and are ANDed together. A
// search term adds a single OR-group over title and description, appended
// last. The empty string is returned when no filter is present; callers then
// omit the WHERE keyword.
func Where(b *Binder, f Filter) string {
	var conds []string

	if f.IsSold != nil {
		conds = append(conds, "a.is_sold = "+b.Bind(ParamIsSold, *f.IsSold))
	}
	if f.Username != "" {
		conds = append(conds, "u.username = "+b.Bind(ParamUsername, f.Username))
	}
	if f.OwnerID != nil {
		conds = append(conds, "a.user_id = "+b.Bind(ParamOwnerID, *f.OwnerID))
	}
	if f.AdvertID != nil {
		conds = append(conds, "a.advert_id = "+b.Bind(ParamAdvertID, *f.AdvertID))
	}
	if f.MinPrice != nil {
		conds = append(conds, "a.price >= "+b.Bind(ParamMinPrice, *f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "a.price <= "+b.Bind(ParamMaxPrice, *f.MaxPrice))
	}
	if f.MinPieceAmount != nil {
		conds = append(conds, "a.piece_amount >= "+b.Bind(ParamMinPieceAmount, *f.MinPieceAmount))
	}
	if f.MaxPieceAmount != nil {
		conds = append(conds, "a.piece_amount <= "+b.Bind(ParamMaxPieceAmount, *f.MaxPieceAmount))
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		// One argument serves both columns.
		ph := b.Bind(ParamSearch, ContainsPattern(term))
		d := b.Dialect()
		conds = append(conds, "("+d.ContainsFold("a.title", ph)+" OR "+d.ContainsFold("a.description", ph)+")")
	}

	return strings.Join(conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a literal search term into a LIKE pattern matching
// any value that contains it. Wildcards typed by the user match literally.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
