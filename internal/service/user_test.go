package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/auth"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/repository"
)

type fakeUserRepo struct {
	users   map[int64]*model.User
	nextID  int64
	updates []repository.ProfileUpdate
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", u.Username)
		}
	}
	f.nextID++
	u.ID = f.nextID
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprint(id))
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, upd repository.ProfileUpdate) error {
	f.updates = append(f.updates, upd)
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	if upd.PassHash != nil {
		u.PassHash = *upd.PassHash
	}
	return nil
}

func newTestUserService(t *testing.T) (*UserService, *fakeUserRepo, *auth.TokenService) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens, err := auth.NewTokenService("test-secret-of-sufficient-length", time.Hour)
	require.NoError(t, err)
	svc, err := NewUserService(repo, auth.NewBcryptHasher(4), tokens, testLogger())
	require.NoError(t, err)
	return svc, repo, tokens
}

func register(t *testing.T, svc *UserService, username, password string) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	svc, repo, _ := newTestUserService(t)

	u, err := svc.Register(context.Background(), Registration{
		Username: "  puzzler_1 ",
		Email:    " p1@example.com",
		Password: "jigsaw",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "puzzler_1", u.Username)
	assert.Equal(t, "p1@example.com", u.Email)
	assert.NotEqual(t, "jigsaw", repo.users[u.ID].PassHash)
	assert.NoError(t, auth.NewBcryptHasher(4).Verify(repo.users[u.ID].PassHash, "jigsaw"))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		reg       Registration
		wantField string
	}{
		{"missing username", Registration{Password: "secret"}, "username"},
		{"short username", Registration{Username: "ab", Password: "secret"}, "username"},
		{"bad characters", Registration{Username: "bad name!", Password: "secret"}, "username"},
		{"bad email", Registration{Username: "alice", Email: "nope", Password: "secret"}, "email"},
		{"short password", Registration{Username: "alice", Password: "abc"}, "password"},
		{"password over 72 bytes", Registration{Username: "alice", Password: strings.Repeat("ø", 40)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestUserService(t)

			_, err := svc.Register(context.Background(), tt.reg)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, repo.users)
		})
	}
}

func TestRegister_MultiBytePasswordAtByteLimit(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	password := strings.Repeat("ø", 36) // 72 bytes

	register(t, svc, "soren", password)

	_, err := svc.Authenticate(context.Background(), "soren", password)
	assert.NoError(t, err)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	register(t, svc, "alice", "secret")

	_, err := svc.Register(context.Background(), Registration{Username: "alice", Password: "other"})

	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestAuthenticate_FailuresLookTheSame(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	register(t, svc, "alice", "secret")
	ctx := context.Background()

	_, wrongPassword := svc.Authenticate(ctx, "alice", "guess")
	_, unknownUser := svc.Authenticate(ctx, "mallory", "secret")

	require.ErrorIs(t, wrongPassword, apperror.ErrUnauthorized)
	require.ErrorIs(t, unknownUser, apperror.ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	u, err := svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestLogin_IssuesToken(t *testing.T) {
	svc, _, tokens := newTestUserService(t)
	u := register(t, svc, "alice", "secret")

	res, err := svc.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	id, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, u.ID, res.User.ID)
}

func TestLogin_Rejected(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	register(t, svc, "alice", "secret")

	res, err := svc.Login(context.Background(), "alice", "wrong")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestGetByID(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	u := register(t, svc, "alice", "secret")

	got, err := svc.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateProfile_ContactFields(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	u := register(t, svc, "alice", "secret")
	hashBefore := repo.users[u.ID].PassHash

	got, err := svc.UpdateProfile(context.Background(), u.ID, ProfilePatch{
		PhoneNumber: strPtr(" +44 20 7946 0000 "),
	})
	require.NoError(t, err)

	assert.Equal(t, "+44 20 7946 0000", got.PhoneNumber)
	assert.Equal(t, "alice@example.com", got.Email, "untouched field must survive")
	assert.Equal(t, hashBefore, repo.users[u.ID].PassHash)
}

func TestUpdateProfile_EmptyPatchWritesNothing(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	u := register(t, svc, "alice", "secret")

	got, err := svc.UpdateProfile(context.Background(), u.ID, ProfilePatch{})

	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, repo.updates)
}

func TestUpdateProfile_Password(t *testing.T) {
	ctx := context.Background()

	t.Run("with current password", func(t *testing.T) {
		svc, _, _ := newTestUserService(t)
		u := register(t, svc, "alice", "secret")

		_, err := svc.UpdateProfile(ctx, u.ID, ProfilePatch{
			NewPassword:     strPtr("n3w-secret"),
			CurrentPassword: strPtr("secret"),
		})
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, "alice", "n3w-secret")
		assert.NoError(t, err)
		_, err = svc.Authenticate(ctx, "alice", "secret")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("without current password", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		u := register(t, svc, "alice", "secret")

		_, err := svc.UpdateProfile(ctx, u.ID, ProfilePatch{NewPassword: strPtr("n3w-secret")})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, "currentPassword", appErr.Field)
		assert.Empty(t, repo.updates)
	})

	t.Run("new password over 72 bytes", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		u := register(t, svc, "alice", "secret")

		_, err := svc.UpdateProfile(ctx, u.ID, ProfilePatch{
			NewPassword:     strPtr(strings.Repeat("å", 50)),
			CurrentPassword: strPtr("secret"),
		})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, "newPassword", appErr.Field)
		assert.Contains(t, appErr.Message, "72 bytes")
		assert.Empty(t, repo.updates)
	})

	t.Run("wrong current password", func(t *testing.T) {
		svc, repo, _ := newTestUserService(t)
		u := register(t, svc, "alice", "secret")

		_, err := svc.UpdateProfile(ctx, u.ID, ProfilePatch{
			Email:           strPtr("new@example.com"),
			NewPassword:     strPtr("n3w-secret"),
			CurrentPassword: strPtr("guess"),
		})

		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		assert.Empty(t, repo.updates)
		assert.Equal(t, "alice@example.com", repo.users[u.ID].Email)
	})
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _, _ := newTestUserService(t)

	_, err := svc.UpdateProfile(context.Background(), 9, ProfilePatch{Email: strPtr("a@b.co")})

	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}
