package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/internal/users"
	pkgauth "github.com/epharm-labs/epharm-backend/pkg/auth"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/security"
)

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	Users       users.Repository
	TokenIssuer *pkgauth.TokenIssuer
	Password    config.PasswordConfig
}

// Service handles registration and credential verification.
type Service struct {
	users    users.Repository
	issuer   *pkgauth.TokenIssuer
	password config.PasswordConfig
}

// NewService builds an auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, errors.New("users repo is required")
	}
	if params.TokenIssuer == nil {
		return nil, errors.New("token issuer is required")
	}
	return &Service{
		users:    params.Users,
		issuer:   params.TokenIssuer,
		password: params.Password,
	}, nil
}

// Register creates a new user with a hashed password. Duplicate emails are
// reported as conflicts.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*UserProfile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up email")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        email,
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		City:         input.City,
		Country:      input.Country,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	profile := profileFromModel(user)
	return &profile, nil
}

// Login verifies the credentials and mints an access token. Unknown emails
// and wrong passwords return the same unauthorized error.
func (s *Service) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up email")
	}
	if user == nil || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.issuer.Mint(user.ID.String(), user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording login")
	}

	return &TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        profileFromModel(user),
	}, nil
}

// Profile returns the public profile for the given user id.
func (s *Service) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	profile := profileFromModel(user)
	return &profile, nil
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id")
	}
	return id, nil
}

func profileFromModel(user *models.User) UserProfile {
	return UserProfile{
		ID:        user.ID.String(),
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		City:      user.City,
		Country:   user.Country,
		Phone:     user.Phone,
	}
}
