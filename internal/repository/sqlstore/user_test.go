package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/repository"
)

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	u := createTestUser(t, db, "alice")

	if u.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := createUserErr(t, db, "alice")

	if !errors.Is(dup, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", dup)
	}
}

func createUserErr(t *testing.T, db *DB, username string) error {
	t.Helper()
	return db.CreateUser(context.Background(), createTestUserValue(username))
}

func TestGetUserByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice")

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if *got != *created {
		t.Errorf("GetUserByID() = %+v, want %+v", got, created)
	}
}

func TestGetUserByUsername_IncludesPassHash(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	got, err := db.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.PassHash != "hash-of-alice" {
		t.Errorf("PassHash = %q", got.PassHash)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUserByID(ctx, 77); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByUsername(ctx, "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfile_Partial(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice")

	email := "new@example.com"
	if err := db.UpdateProfile(ctx, u.ID, repository.ProfileUpdate{Email: &email}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Email != email {
		t.Errorf("Email = %q, want %q", got.Email, email)
	}
	// Omitted fields keep their values.
	if got.PhoneNumber != u.PhoneNumber {
		t.Errorf("PhoneNumber changed to %q", got.PhoneNumber)
	}
	if got.PassHash != u.PassHash {
		t.Errorf("PassHash changed to %q", got.PassHash)
	}
	if got.Username != "alice" || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("immutable fields changed: %+v", got)
	}
}

func TestUpdateProfile_AllFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "alice")

	email, phone, hash := "a@b.example", "555-0100", "new-hash"
	upd := repository.ProfileUpdate{Email: &email, PhoneNumber: &phone, PassHash: &hash}
	if err := db.UpdateProfile(ctx, u.ID, upd); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	got, _ := db.GetUserByID(ctx, u.ID)
	if got.Email != email || got.PhoneNumber != phone || got.PassHash != hash {
		t.Errorf("UpdateProfile() did not apply all fields: %+v", got)
	}
}

func TestUpdateProfile_EmptyIsNoop(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "alice")

	if err := db.UpdateProfile(context.Background(), u.ID, repository.ProfileUpdate{}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	// Missing users are not an error either.
	email := "x@y.example"
	if err := db.UpdateProfile(context.Background(), 999, repository.ProfileUpdate{Email: &email}); err != nil {
		t.Fatalf("UpdateProfile() on missing user error = %v", err)
	}
}
