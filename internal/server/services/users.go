// Package services contains server-side business logic. This file
// implements UserService: sign-up, sign-in, token refresh, the
// permission gate, and account views.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/auth"
	"github.com/sstoianov/liblend/internal/server/config"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
)

// timeNow is a seam for tests that pin the clock.
var timeNow = time.Now

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserView is the external shape of an account. The identifier is
// opaque; the row id never leaves the service layer.
type UserView struct {
	ID    opaqueid.ID[opaqueid.User] `json:"id"`
	Name  string                     `json:"name"`
	Email string                     `json:"email"`
}

// UserService provides authentication and account operations:
//   - SignUp: create accounts
//   - SignIn: verify credentials and mint tokens
//   - Refresh: mint a new pair from a valid refresh token
//   - Authenticate / CheckPermission: the request identity gate
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	codec                        *opaqueid.Codec
	hasher                       *auth.Hasher
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// hashSem caps concurrent argon2 runs: each one pins memory and a
	// few cores, so unbounded sign-in traffic would stall the server.
	hashSem chan struct{}
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, codec *opaqueid.Codec, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		codec:                        codec,
		hasher:                       auth.NewHasher([]byte(cfg.HasherKey), auth.DefaultHasherParams()),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		hashSem:                      make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// SignUp validates the fields, hashes the password and creates the
// account with a fresh refresh secret. A taken email yields
// common.ErrAccountExists.
func (s *UserService) SignUp(ctx context.Context, name, email, password string) error {
	if err := auth.ValidateName(name); err != nil {
		return err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	var hash string
	err := s.withHashSlot(ctx, func() error {
		var err error
		hash, err = s.hasher.Hash(password)
		return err
	})
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		PasswordHash:  models.PasswordHash(hash),
		RefreshSecret: uuid.New(),
		Role:          models.RoleClient,
	}
	return s.repomanager.Users(s.db).Insert(ctx, user)
}

// SignIn verifies the credentials and returns a fresh token pair.
//
// An unknown email still pays for one full hash computation before
// failing, so it is not distinguishable from a wrong password by
// response time. Both cases return common.ErrInvalidCredentials.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if verr := s.withHashSlot(ctx, func() error {
				return s.hasher.Verify(password, nil)
			}); !errors.Is(verr, common.ErrInvalidCredentials) {
				return nil, verr
			}
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	stored := string(user.PasswordHash)
	if err := s.withHashSlot(ctx, func() error {
		return s.hasher.Verify(password, &stored)
	}); err != nil {
		return nil, err
	}

	return s.generateTokenPair(user)
}

// Refresh verifies a refresh token and mints a new pair for the account
// holding its secret. The secret is not rotated. Any failure along the
// way means the caller has to sign in again.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	secret, err := auth.ParseRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, common.ErrLoggedOff
	}
	user, err := s.repomanager.Users(s.db).FindByRefreshSecret(ctx, secret)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrLoggedOff
		}
		return nil, err
	}
	return s.generateTokenPair(user)
}

// Authenticate resolves an access token to the caller's row id. Any
// parse or decode failure means the request carries no usable identity.
func (s *UserService) Authenticate(accessToken string) (int64, error) {
	opaque, err := auth.ParseAccessToken(accessToken, s.jwtSecret)
	if err != nil {
		return 0, common.ErrLoggedOff
	}
	id, err := opaqueid.Parse[opaqueid.User](opaque)
	if err != nil {
		return 0, common.ErrLoggedOff
	}
	rowID, err := id.RowID(s.codec)
	if err != nil {
		return 0, common.ErrLoggedOff
	}
	return rowID, nil
}

// CheckPermission is the role gate: it distinguishes "not signed in"
// (the account no longer exists) from "signed in, not allowed" (the
// predicate rejects the role).
func (s *UserService) CheckPermission(ctx context.Context, userID int64, allowed func(models.Role) bool) error {
	role, err := s.repomanager.Users(s.db).FindRole(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrLoggedOff
		}
		return err
	}
	if !allowed(role) {
		return common.ErrUnauthorized
	}
	return nil
}

// DecodeUserID turns an opaque user id from the wire into a row id. A
// mistagged or unparseable identifier looks exactly like a missing
// account.
func (s *UserService) DecodeUserID(opaque string) (int64, error) {
	id, err := opaqueid.Parse[opaqueid.User](opaque)
	if err != nil {
		return 0, common.ErrNotFound
	}
	rowID, err := id.RowID(s.codec)
	if err != nil {
		return 0, common.ErrNotFound
	}
	return rowID, nil
}

// Get returns the account view for a row id.
func (s *UserService) Get(ctx context.Context, userID int64) (*UserView, error) {
	user, err := s.repomanager.Users(s.db).Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(user), nil
}

// UpdateName renames the account.
func (s *UserService) UpdateName(ctx context.Context, userID int64, name string) error {
	if err := auth.ValidateName(name); err != nil {
		return err
	}
	return s.repomanager.Users(s.db).UpdateName(ctx, userID, name)
}

// List returns every account. The caller is expected to have passed the
// administrator gate.
func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, *s.view(&users[i]))
	}
	return views, nil
}

// --- helpers below ---

// withHashSlot runs fn under the hashing semaphore. Waiting honors ctx;
// a started computation is never cancelled.
func (s *UserService) withHashSlot(ctx context.Context, fn func() error) error {
	select {
	case s.hashSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.hashSem }()
	return fn()
}

func (s *UserService) view(user *models.User) *UserView {
	return &UserView{
		ID:    opaqueid.New[opaqueid.User](user.ID, s.codec),
		Name:  user.Name,
		Email: user.Email,
	}
}

func (s *UserService) generateTokenPair(user *models.User) (*TokenPair, error) {
	opaque := opaqueid.New[opaqueid.User](user.ID, s.codec)
	access, err := auth.NewAccessToken(opaque.String(), s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := auth.NewRefreshToken(user.RefreshSecret, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
