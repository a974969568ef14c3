// Package repository declares the storage contracts the service layer
// depends on. Implementations live in subpackages (see sqlstore).
package repository

import (
	"context"

	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/query"
)

// DefaultLimit is the page size used when a listing asks for none.
const DefaultLimit = 100

// AdvertListOptions selects one page of adverts.
type AdvertListOptions struct {
	Filter query.Filter
	Sort   *query.Sort // nil: tie-break ordering only
	Offset int
	Limit  int // <= 0 means DefaultLimit
}

// AdvertLimits summarises the adverts matching a filter. Every field is
// zero when nothing matches.
type AdvertLimits struct {
	Count          int64   `json:"count"`
	MaxPrice       float64 `json:"maxPrice"`
	MaxPieceAmount int     `json:"maxPieceAmount"`
}

type AdvertRepository interface {
	// Create inserts the advert and fills in ID and CreatedAt.
	Create(ctx context.Context, advert *model.Advert) error
	// GetByID returns apperror.ErrNotFound when no row matches.
	GetByID(ctx context.Context, id int64) (*model.Advert, error)
	List(ctx context.Context, opts AdvertListOptions) ([]model.Advert, error)
	// ListByOwner and ListByOwnerID include sold and unsold adverts.
	ListByOwner(ctx context.Context, username string, offset, limit int) ([]model.Advert, error)
	ListByOwnerID(ctx context.Context, userID int64, offset, limit int) ([]model.Advert, error)
	Limits(ctx context.Context, filter query.Filter) (AdvertLimits, error)
	// Update overwrites every mutable field. A missing row is not an error.
	Update(ctx context.Context, advert *model.Advert) error
	// Delete removes the advert. A missing row is not an error.
	Delete(ctx context.Context, id int64) error
}

// ProfileUpdate lists the user fields to overwrite; nil fields are left
// untouched.
type ProfileUpdate struct {
	Email       *string
	PhoneNumber *string
	PassHash    *string
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Email == nil && u.PhoneNumber == nil && u.PassHash == nil
}

// UserRepository method names carry a User prefix so one store type can
// implement it alongside AdvertRepository.
type UserRepository interface {
	// CreateUser inserts the user and fills in ID and CreatedAt. A taken
	// username yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	// GetUserByUsername includes PassHash so credentials can be verified.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) error
}
