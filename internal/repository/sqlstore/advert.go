package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/query"
	"github.com/sakif/puzzle-market/internal/repository"
)

var _ repository.AdvertRepository = (*DB)(nil)

// advertSelect reads adverts with their owner's public fields. The LEFT JOIN
// keeps adverts whose owner account is gone; the u.* columns are then NULL.
const advertSelect = `SELECT a.advert_id, a.title, a.description, a.price, a.piece_amount,
	a.box_height, a.box_width, a.box_depth, a.puzzle_height, a.puzzle_width,
	a.picture, a.user_id, a.created_at, a.is_sold,
	u.user_id, u.username, u.email, u.phone_number, u.created_at
FROM adverts a
LEFT JOIN user_accounts u ON u.user_id = a.user_id`

func scanAdvert(s scanner) (*model.Advert, error) {
	var (
		a            model.Advert
		userID       sql.NullInt64
		ownerID      sql.NullInt64
		ownerName    sql.NullString
		ownerEmail   sql.NullString
		ownerPhone   sql.NullString
		ownerCreated sql.NullTime
	)

	err := s.Scan(
		&a.ID, &a.Title, &a.Description, &a.Price, &a.PieceAmount,
		&a.BoxDimensions.Height, &a.BoxDimensions.Width, &a.BoxDimensions.Depth,
		&a.PuzzleDimensions.Height, &a.PuzzleDimensions.Width,
		&a.Picture, &userID, &a.CreatedAt, &a.IsSold,
		&ownerID, &ownerName, &ownerEmail, &ownerPhone, &ownerCreated,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt = a.CreatedAt.UTC()
	a.UserID = userID.Int64
	if ownerID.Valid {
		a.User = &model.User{
			ID:          ownerID.Int64,
			Username:    ownerName.String,
			Email:       ownerEmail.String,
			PhoneNumber: ownerPhone.String,
			CreatedAt:   ownerCreated.Time.UTC(),
		}
	}
	return &a, nil
}

// nullableBytes maps a nil slice to SQL NULL. Some drivers would otherwise
// store an empty blob.
func nullableBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

// Create inserts a new advert. ID and CreatedAt are written back into the
// caller's struct. The owner must exist.
func (db *DB) Create(ctx context.Context, advert *model.Advert) (err error) {
	defer db.observe("adverts.create", time.Now(), &err)

	advert.CreatedAt = db.timestamp()

	b := query.NewBinder(db.dialect)
	values := strings.Join([]string{
		b.Bind("title", advert.Title),
		b.Bind("description", advert.Description),
		b.Bind("price", advert.Price),
		b.Bind("piece_amount", advert.PieceAmount),
		b.Bind("box_height", advert.BoxDimensions.Height),
		b.Bind("box_width", advert.BoxDimensions.Width),
		b.Bind("box_depth", advert.BoxDimensions.Depth),
		b.Bind("puzzle_height", advert.PuzzleDimensions.Height),
		b.Bind("puzzle_width", advert.PuzzleDimensions.Width),
		b.Bind("picture", nullableBytes(advert.Picture)),
		b.Bind("user_id", advert.UserID),
		b.Bind("created_at", advert.CreatedAt),
		b.Bind("is_sold", advert.IsSold),
	}, ", ")

	q := `INSERT INTO adverts (title, description, price, piece_amount,
	box_height, box_width, box_depth, puzzle_height, puzzle_width,
	picture, user_id, created_at, is_sold)
VALUES (` + values + `)
RETURNING advert_id`

	if err = db.conn.QueryRowContext(ctx, q, b.Args()...).Scan(&advert.ID); err != nil {
		if classify(err) == foreignKeyViolation {
			return apperror.ValidationFailed("userId",
				fmt.Sprintf("owner account %d does not exist", advert.UserID))
		}
		return fmt.Errorf("sqlstore: creating advert: %w", err)
	}

	return nil
}

// GetByID returns the advert regardless of its sold status.
func (db *DB) GetByID(ctx context.Context, id int64) (_ *model.Advert, err error) {
	defer db.observe("adverts.get", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	q := advertSelect + "\nWHERE a.advert_id = " + b.Bind("advertId", id)

	advert, err := scanAdvert(db.conn.QueryRowContext(ctx, q, b.Args()...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("advert", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting advert %d: %w", id, err)
	}
	return advert, nil
}

// List returns one page of adverts matching opts.Filter. An empty result is
// an empty, non-nil slice.
func (db *DB) List(ctx context.Context, opts repository.AdvertListOptions) (_ []model.Advert, err error) {
	defer db.observe("adverts.list", time.Now(), &err)

	limit := opts.Limit
	if limit <= 0 {
		limit = repository.DefaultLimit
	}
	offset := max(opts.Offset, 0)

	order, err := query.OrderBy(opts.Sort)
	if err != nil {
		return nil, apperror.ValidationFailed("orderBy", err.Error())
	}

	b := query.NewBinder(db.dialect)
	var sb strings.Builder
	sb.WriteString(advertSelect)
	if where := query.Where(b, opts.Filter); where != "" {
		sb.WriteString("\nWHERE ")
		sb.WriteString(where)
	}
	sb.WriteString("\nORDER BY ")
	sb.WriteString(order)
	sb.WriteString("\nLIMIT " + b.Bind("limit", limit) + " OFFSET " + b.Bind("offset", offset))

	rows, err := db.conn.QueryContext(ctx, sb.String(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing adverts: %w", err)
	}
	defer rows.Close()

	adverts := make([]model.Advert, 0)
	for rows.Next() {
		a, err := scanAdvert(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning advert row: %w", err)
		}
		adverts = append(adverts, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating advert rows: %w", err)
	}

	return adverts, nil
}

// ListByOwner lists everything a user has posted, sold or not.
func (db *DB) ListByOwner(ctx context.Context, username string, offset, limit int) ([]model.Advert, error) {
	return db.List(ctx, repository.AdvertListOptions{
		Filter: query.Filter{Username: username},
		Offset: offset,
		Limit:  limit,
	})
}

func (db *DB) ListByOwnerID(ctx context.Context, userID int64, offset, limit int) ([]model.Advert, error) {
	return db.List(ctx, repository.AdvertListOptions{
		Filter: query.Filter{OwnerID: &userID},
		Offset: offset,
		Limit:  limit,
	})
}

// Limits computes count, highest price and highest piece count over the
// adverts matching filter in a single query. MAX over no rows is NULL, so
// both maxima are coalesced to zero.
func (db *DB) Limits(ctx context.Context, filter query.Filter) (_ repository.AdvertLimits, err error) {
	defer db.observe("adverts.limits", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	q := `SELECT COUNT(*), COALESCE(MAX(a.price), 0), COALESCE(MAX(a.piece_amount), 0)
FROM adverts a
LEFT JOIN user_accounts u ON u.user_id = a.user_id`
	if where := query.Where(b, filter); where != "" {
		q += "\nWHERE " + where
	}

	var l repository.AdvertLimits
	if err = db.conn.QueryRowContext(ctx, q, b.Args()...).Scan(&l.Count, &l.MaxPrice, &l.MaxPieceAmount); err != nil {
		return repository.AdvertLimits{}, fmt.Errorf("sqlstore: computing advert limits: %w", err)
	}
	return l, nil
}

// Update overwrites every mutable column. Owner and creation time are fixed
// at insert. Updating a missing advert changes nothing and is not an error.
func (db *DB) Update(ctx context.Context, advert *model.Advert) (err error) {
	defer db.observe("adverts.update", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	set := query.Set(b, []query.Assignment{
		{Column: "title", Value: advert.Title},
		{Column: "description", Value: advert.Description},
		{Column: "price", Value: advert.Price},
		{Column: "piece_amount", Value: advert.PieceAmount},
		{Column: "box_height", Value: advert.BoxDimensions.Height},
		{Column: "box_width", Value: advert.BoxDimensions.Width},
		{Column: "box_depth", Value: advert.BoxDimensions.Depth},
		{Column: "puzzle_height", Value: advert.PuzzleDimensions.Height},
		{Column: "puzzle_width", Value: advert.PuzzleDimensions.Width},
		{Column: "picture", Value: nullableBytes(advert.Picture)},
		{Column: "is_sold", Value: advert.IsSold},
	})
	q := "UPDATE adverts SET " + set + " WHERE advert_id = " + b.Bind("advertId", advert.ID)

	if _, err = db.conn.ExecContext(ctx, q, b.Args()...); err != nil {
		return fmt.Errorf("sqlstore: updating advert %d: %w", advert.ID, err)
	}
	return nil
}

// Delete removes an advert. Deleting a missing advert is a no-op.
func (db *DB) Delete(ctx context.Context, id int64) (err error) {
	defer db.observe("adverts.delete", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	q := "DELETE FROM adverts WHERE advert_id = " + b.Bind("advertId", id)

	if _, err = db.conn.ExecContext(ctx, q, b.Args()...); err != nil {
		return fmt.Errorf("sqlstore: deleting advert %d: %w", id, err)
	}
	return nil
}
