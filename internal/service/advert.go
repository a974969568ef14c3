// Package service holds the business rules between HTTP handlers and the
// repositories: input validation, paging limits, ownership checks and the
// policy for surfacing storage failures.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/query"
	"github.com/sakif/puzzle-market/internal/repository"
)

// ListingOptions tunes paging and read-failure handling for adverts.
type ListingOptions struct {
	DefaultLimit int
	MaxLimit     int

	// MaskReadErrors makes read paths log storage failures and answer as if
	// nothing matched. Validation, not-found and permission errors are
	// never masked, and writes always report failures.
	MaskReadErrors bool
}

func DefaultListingOptions() ListingOptions {
	return ListingOptions{DefaultLimit: repository.DefaultLimit, MaxLimit: 500}
}

type AdvertService struct {
	repo     repository.AdvertRepository
	logger   *slog.Logger
	validate *validator.Validate
	opts     ListingOptions
}

func NewAdvertService(repo repository.AdvertRepository, logger *slog.Logger, opts ListingOptions) *AdvertService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = repository.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &AdvertService{
		repo:     repo,
		logger:   logger,
		validate: newValidator(),
		opts:     opts,
	}
}

// AdvertQuery is a listing request: the search descriptor from the listing
// page plus the scope the caller is allowed to set.
//
// The explicit bounds override whatever range Search describes for the same
// dimension, so price and piece count can be bounded together.
type AdvertQuery struct {
	Search   model.SearchParam
	Sold     *bool // nil lists sold and unsold adverts
	Username string

	MinPrice  *float64
	MaxPrice  *float64
	MinPieces *int
	MaxPieces *int

	Offset int
	Limit  int
}

func (q AdvertQuery) filterAndSort() (query.Filter, query.Sort) {
	f, s := query.FromSearch(q.Search)
	f.IsSold = q.Sold
	f.Username = strings.TrimSpace(q.Username)
	if q.MinPrice != nil {
		f.MinPrice = q.MinPrice
	}
	if q.MaxPrice != nil {
		f.MaxPrice = q.MaxPrice
	}
	if q.MinPieces != nil {
		f.MinPieceAmount = q.MinPieces
	}
	if q.MaxPieces != nil {
		f.MaxPieceAmount = q.MaxPieces
	}
	return f, s
}

// isStorageFailure reports whether err came from the backend rather than
// from a rule the caller broke.
func isStorageFailure(err error) bool {
	var appErr *apperror.AppError
	return !errors.As(err, &appErr)
}

func (s *AdvertService) masked(err error) bool {
	return s.opts.MaskReadErrors && isStorageFailure(err)
}

func (s *AdvertService) page(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}
	return max(offset, 0), limit
}

// Create validates the advert and stores it as owned by ownerID. Client
// supplied ID, CreatedAt and owner fields are ignored.
func (s *AdvertService) Create(ctx context.Context, ownerID int64, advert *model.Advert) (*model.Advert, error) {
	if ownerID <= 0 {
		return nil, apperror.Unauthorized("sign in to post an advert")
	}

	advert.ID = 0
	advert.UserID = ownerID
	advert.User = nil
	normalize(advert)

	if err := s.validate.Struct(advert); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.Create(ctx, advert); err != nil {
		s.logger.Error("failed to create advert",
			slog.Int64("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating advert: %w", err)
	}

	s.logger.Info("advert created",
		slog.Int64("advertID", advert.ID),
		slog.Int64("ownerID", ownerID),
	)
	return advert, nil
}

func normalize(a *model.Advert) {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
}

// Get returns one advert whatever its sold status.
func (s *AdvertService) Get(ctx context.Context, id int64) (*model.Advert, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "advert id must be positive")
	}

	advert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if s.masked(err) {
			s.logger.Error("advert lookup failed, reporting not found",
				slog.Int64("advertID", id),
				slog.String("error", err.Error()),
			)
			return nil, apperror.NotFound("advert", fmt.Sprint(id))
		}
		return nil, err
	}
	return advert, nil
}

// Search runs a listing-page query.
func (s *AdvertService) Search(ctx context.Context, q AdvertQuery) ([]model.Advert, error) {
	f, sort := q.filterAndSort()
	return s.List(ctx, repository.AdvertListOptions{
		Filter: f,
		Sort:   &sort,
		Offset: q.Offset,
		Limit:  q.Limit,
	})
}

// List returns one page of adverts for an arbitrary filter.
func (s *AdvertService) List(ctx context.Context, opts repository.AdvertListOptions) ([]model.Advert, error) {
	opts.Offset, opts.Limit = s.page(opts.Offset, opts.Limit)

	adverts, err := s.repo.List(ctx, opts)
	if err != nil {
		if s.masked(err) {
			s.logger.Error("advert listing failed, returning empty page", slog.String("error", err.Error()))
			return []model.Advert{}, nil
		}
		return nil, fmt.Errorf("listing adverts: %w", err)
	}
	return adverts, nil
}

// ListByOwner lists everything username has posted, sold or not.
func (s *AdvertService) ListByOwner(ctx context.Context, username string, offset, limit int) ([]model.Advert, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	offset, limit = s.page(offset, limit)

	adverts, err := s.repo.ListByOwner(ctx, username, offset, limit)
	if err != nil {
		if s.masked(err) {
			s.logger.Error("owner listing failed, returning empty page",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			return []model.Advert{}, nil
		}
		return nil, fmt.Errorf("listing adverts of %s: %w", username, err)
	}
	return adverts, nil
}

func (s *AdvertService) ListByOwnerID(ctx context.Context, userID int64, offset, limit int) ([]model.Advert, error) {
	offset, limit = s.page(offset, limit)

	adverts, err := s.repo.ListByOwnerID(ctx, userID, offset, limit)
	if err != nil {
		if s.masked(err) {
			s.logger.Error("owner listing failed, returning empty page",
				slog.Int64("userID", userID),
				slog.String("error", err.Error()),
			)
			return []model.Advert{}, nil
		}
		return nil, fmt.Errorf("listing adverts of user %d: %w", userID, err)
	}
	return adverts, nil
}

// Limits returns count and maxima over the adverts matching filter. The
// listing page uses them to size its range sliders.
func (s *AdvertService) Limits(ctx context.Context, filter query.Filter) (repository.AdvertLimits, error) {
	limits, err := s.repo.Limits(ctx, filter)
	if err != nil {
		if s.masked(err) {
			s.logger.Error("advert limits failed, returning zeros", slog.String("error", err.Error()))
			return repository.AdvertLimits{}, nil
		}
		return repository.AdvertLimits{}, fmt.Errorf("computing advert limits: %w", err)
	}
	return limits, nil
}

// SearchLimits is Limits for the filter a listing query would apply.
// Paging and ordering are irrelevant here.
func (s *AdvertService) SearchLimits(ctx context.Context, q AdvertQuery) (repository.AdvertLimits, error) {
	f, _ := q.filterAndSort()
	return s.Limits(ctx, f)
}

func (s *AdvertService) Count(ctx context.Context, filter query.Filter) (int64, error) {
	l, err := s.Limits(ctx, filter)
	return l.Count, err
}

func (s *AdvertService) MaxPrice(ctx context.Context, filter query.Filter) (float64, error) {
	l, err := s.Limits(ctx, filter)
	return l.MaxPrice, err
}

func (s *AdvertService) MaxPieceAmount(ctx context.Context, filter query.Filter) (int, error) {
	l, err := s.Limits(ctx, filter)
	return l.MaxPieceAmount, err
}

// owned loads an advert and checks that actorID owns it.
func (s *AdvertService) owned(ctx context.Context, actorID, id int64) (*model.Advert, error) {
	if actorID <= 0 {
		return nil, apperror.Unauthorized("sign in to change adverts")
	}
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "advert id must be positive")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != actorID {
		return nil, apperror.Forbidden("only the owner can change this advert")
	}
	return existing, nil
}

// Update replaces every mutable field of the advert with the given values.
// Owner and creation time stay as stored.
func (s *AdvertService) Update(ctx context.Context, actorID int64, advert *model.Advert) (*model.Advert, error) {
	existing, err := s.owned(ctx, actorID, advert.ID)
	if err != nil {
		return nil, err
	}

	advert.UserID = existing.UserID
	advert.User = existing.User
	advert.CreatedAt = existing.CreatedAt
	normalize(advert)

	if err := s.validate.Struct(advert); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, advert); err != nil {
		s.logger.Error("failed to update advert",
			slog.Int64("advertID", advert.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating advert: %w", err)
	}

	s.logger.Info("advert updated", slog.Int64("advertID", advert.ID))
	return advert, nil
}

// MarkSold flips only the sold flag.
func (s *AdvertService) MarkSold(ctx context.Context, actorID, id int64, sold bool) (*model.Advert, error) {
	existing, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsSold == sold {
		return existing, nil
	}

	existing.IsSold = sold
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("marking advert %d sold=%t: %w", id, sold, err)
	}

	s.logger.Info("advert sold status changed",
		slog.Int64("advertID", id),
		slog.Bool("sold", sold),
	)
	return existing, nil
}

// Delete removes the advert. Deleting an advert that does not exist is not
// an error.
func (s *AdvertService) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete advert",
			slog.Int64("advertID", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting advert: %w", err)
	}

	s.logger.Info("advert deleted", slog.Int64("advertID", id))
	return nil
}
