package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/query"
	"github.com/sakif/puzzle-market/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userSelect = `SELECT user_id, username, pass_hash, email, phone_number, created_at
FROM user_accounts`

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Username, &u.PassHash, &u.Email, &u.PhoneNumber, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateUser inserts an account. The username UNIQUE constraint is the only
// guard against duplicates, so two concurrent registrations cannot both win.
func (db *DB) CreateUser(ctx context.Context, user *model.User) (err error) {
	defer db.observe("users.create", time.Now(), &err)

	user.CreatedAt = db.timestamp()

	b := query.NewBinder(db.dialect)
	q := `INSERT INTO user_accounts (username, pass_hash, email, phone_number, created_at)
VALUES (` + b.Bind("username", user.Username) + `, ` +
		b.Bind("pass_hash", user.PassHash) + `, ` +
		b.Bind("email", user.Email) + `, ` +
		b.Bind("phone_number", user.PhoneNumber) + `, ` +
		b.Bind("created_at", user.CreatedAt) + `)
RETURNING user_id`

	if err = db.conn.QueryRowContext(ctx, q, b.Args()...).Scan(&user.ID); err != nil {
		if classify(err) == uniqueViolation {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlstore: creating user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (_ *model.User, err error) {
	defer db.observe("users.get", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	q := userSelect + "\nWHERE user_id = " + b.Bind("userId", id)

	user, err := scanUser(db.conn.QueryRowContext(ctx, q, b.Args()...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (_ *model.User, err error) {
	defer db.observe("users.get_by_username", time.Now(), &err)

	b := query.NewBinder(db.dialect)
	q := userSelect + "\nWHERE username = " + b.Bind("username", username)

	user, err := scanUser(db.conn.QueryRowContext(ctx, q, b.Args()...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlstore: getting user %q: %w", username, err)
	}
	return user, nil
}

// UpdateProfile writes only the fields present in upd. An empty update does
// not touch the database.
func (db *DB) UpdateProfile(ctx context.Context, id int64, upd repository.ProfileUpdate) (err error) {
	if upd.IsEmpty() {
		return nil
	}
	defer db.observe("users.update_profile", time.Now(), &err)

	var assignments []query.Assignment
	if upd.Email != nil {
		assignments = append(assignments, query.Assignment{Column: "email", Value: *upd.Email})
	}
	if upd.PhoneNumber != nil {
		assignments = append(assignments, query.Assignment{Column: "phone_number", Value: *upd.PhoneNumber})
	}
	if upd.PassHash != nil {
		assignments = append(assignments, query.Assignment{Column: "pass_hash", Value: *upd.PassHash})
	}

	b := query.NewBinder(db.dialect)
	q := "UPDATE user_accounts SET " + query.Set(b, assignments) + " WHERE user_id = " + b.Bind("userId", id)

	if _, err = db.conn.ExecContext(ctx, q, b.Args()...); err != nil {
		return fmt.Errorf("sqlstore: updating user %d: %w", id, err)
	}
	return nil
}
