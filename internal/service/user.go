package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/auth"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/repository"
)

// invalidCredentials is the single answer for a wrong username or a wrong
// password.
const invalidCredentials = "invalid username or password"

type UserService struct {
	users    repository.UserRepository
	hasher   auth.Hasher
	tokens   *auth.TokenService
	logger   *slog.Logger
	validate *validator.Validate

	// dummyHash is verified against when the username is unknown, so both
	// failure paths do the same hashing work.
	dummyHash string
}

func NewUserService(
	users repository.UserRepository,
	hasher auth.Hasher,
	tokens *auth.TokenService,
	logger *slog.Logger,
) (*UserService, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("service/user: preparing hasher: %w", err)
	}
	return &UserService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		validate:  newValidator(),
		dummyHash: dummy,
	}, nil
}

// Registration is the input for Register.
type Registration struct {
	Username    string `json:"username"    validate:"required,min=3,max=32,username"`
	Email       string `json:"email"       validate:"omitempty,email,max=254"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Password    string `json:"password"    validate:"required,min=4,maxbytes=72"`
}

// AuthResult is a successful login: the account and its session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account. Only the password digest is stored.
func (s *UserService) Register(ctx context.Context, reg Registration) (*model.User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.PhoneNumber = strings.TrimSpace(reg.PhoneNumber)

	if err := s.validate.Struct(reg); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Username:    reg.Username,
		Email:       reg.Email,
		PhoneNumber: reg.PhoneNumber,
		PassHash:    hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", reg.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate returns the account when password matches. An unknown
// username and a wrong password produce the same apperror.ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.hasher.Verify(s.dummyHash, password)
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/user: looking up %q: %w", username, err)
	}

	if err := s.hasher.Verify(user.PassHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			s.logger.Info("login rejected", slog.String("username", username))
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user id must be positive")
	}
	return s.users.GetUserByID(ctx, id)
}

// ProfilePatch lists the profile fields to change; nil means "leave as is".
// Changing the password requires the current one.
type ProfilePatch struct {
	Email           *string `json:"email"           validate:"omitempty,email,max=254"`
	PhoneNumber     *string `json:"phoneNumber"     validate:"omitempty,max=32"`
	NewPassword     *string `json:"newPassword"     validate:"omitempty,min=4,maxbytes=72"`
	CurrentPassword *string `json:"currentPassword"`
}

// UpdateProfile applies patch to the user's account and returns the
// updated profile. A wrong current password yields apperror.ErrUnauthorized
// and changes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) (*model.User, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationError(err)
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	upd := repository.ProfileUpdate{
		Email:       trimmed(patch.Email),
		PhoneNumber: trimmed(patch.PhoneNumber),
	}

	if patch.NewPassword != nil {
		if patch.CurrentPassword == nil {
			return nil, apperror.ValidationFailed("currentPassword", "current password is required to set a new password")
		}
		if _, err := s.Authenticate(ctx, user.Username, *patch.CurrentPassword); err != nil {
			if errors.Is(err, apperror.ErrUnauthorized) {
				s.logger.Warn("password change rejected", slog.Int64("userID", userID))
				return nil, apperror.Unauthorized("current password is incorrect")
			}
			return nil, err
		}

		hash, err := s.hasher.Hash(*patch.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		upd.PassHash = &hash
	}

	if upd.IsEmpty() {
		return user, nil
	}

	if err := s.users.UpdateProfile(ctx, userID, upd); err != nil {
		s.logger.Error("failed to update profile",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: updating profile: %w", err)
	}

	s.logger.Info("profile updated",
		slog.Int64("userID", userID),
		slog.Bool("passwordChanged", upd.PassHash != nil),
	)
	return s.users.GetUserByID(ctx, userID)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
