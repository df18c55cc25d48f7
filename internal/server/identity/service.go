// Package identity implements the server side of authentication: user
// records, credential checks, and the JWT access / opaque refresh token
// pair.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/server/auth"
	"github.com/clarifio/clarifio/internal/server/config"
	"github.com/clarifio/clarifio/internal/server/models"
	"github.com/clarifio/clarifio/internal/server/repositories/refreshtokens"
	"github.com/clarifio/clarifio/internal/server/repositories/users"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo                         users.Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repo users.Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// SignInAnonymously creates a fresh anonymous user and a session for it.
func (s *Service) SignInAnonymously(ctx context.Context) (*models.User, *TokenPair, error) {
	user := &models.User{
		ID:        uuid.NewString(),
		Anonymous: true,
		Confirmed: true,
	}

	user, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating anonymous user: %w", err)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// SignUp registers an email+password credential. The account stays
// unconfirmed until the returned confirmation token is redeemed; no
// session is issued here.
func (s *Service) SignUp(ctx context.Context, email string, password []byte) (string, error) {
	if email == "" || len(password) < 8 {
		return "", fmt.Errorf("%w: email required and password must be at least 8 characters", common.ErrValidation)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return "", fmt.Errorf("%w: email already registered", common.ErrAuth)
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", common.ErrInternal
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return "", common.ErrInternal
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrInternal
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		Anonymous:         false,
		Confirmed:         false,
		ConfirmationToken: token,
	}

	if _, err := s.repo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("error creating user: %w", err)
	}

	return token, nil
}

// Confirm redeems a confirmation token, activating the account.
func (s *Service) Confirm(ctx context.Context, token string) error {
	if err := s.repo.ConfirmByToken(ctx, token); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: unknown confirmation token", common.ErrAuth)
		}
		return common.ErrInternal
	}
	return nil
}

// SignIn authenticates an email+password credential and opens a session.
func (s *Service) SignIn(ctx context.Context, email string, password []byte) (*models.User, *TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrUnauthorized
		}
		return nil, nil, common.ErrInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, password) != nil {
		return nil, nil, common.ErrUnauthorized
	}

	if !user.Confirmed {
		return nil, nil, fmt.Errorf("%w: email not confirmed", common.ErrAuth)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Link attaches an email+password credential to the calling anonymous
// user. The user id is preserved, which is the whole point: every record
// the guest created stays theirs.
func (s *Service) Link(ctx context.Context, userID, email string, password []byte) (*models.User, error) {
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email required and password must be at least 8 characters", common.ErrValidation)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	if !user.Anonymous {
		return nil, fmt.Errorf("%w: identity already has a credential", common.ErrAuth)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", common.ErrAuth)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInternal
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.repo.AttachCredential(ctx, userID, email, hash); err != nil {
		return nil, common.ErrInternal
	}

	user.Email = email
	user.PasswordHash = hash
	user.Anonymous = false
	user.Confirmed = true
	return user, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued. An expired token ends the session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	rt, err := s.refreshTokenRepo.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, common.ErrInternal
	}

	if time.Now().After(rt.Expires) {
		_ = s.refreshTokenRepo.Delete(ctx, refreshToken)
		return nil, nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repo.GetByID(ctx, rt.UserID)
	if err != nil {
		return nil, nil, common.ErrInternal
	}

	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return nil, nil, common.ErrInternal
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// SignOut revokes every refresh token of the user.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	if err := s.refreshTokenRepo.DeleteByUser(ctx, userID); err != nil {
		return common.ErrInternal
	}
	return nil
}

// GetByID returns the user record for an authenticated id.
func (s *Service) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	return user, nil
}

func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.refreshTokenRepo.Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
