package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/auth"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

const maxPasswordLen = 128

// TokenPair is returned by Login.
type TokenPair struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// AuthService registers users, logs them in, refreshes access tokens and
// resolves the caller behind a bearer token.
type AuthService struct {
	users  UserStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewAuthService(users UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenManager, log *zap.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Role     model.Role
}

// Register creates an active buyer or seller.  The email must be unused by
// any user, active or not.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, validation("password is required")
	}
	if len(in.Password) > maxPasswordLen {
		return nil, validation("password must be at most %d characters", maxPasswordLen)
	}
	role := in.Role
	if role == "" {
		role = model.RoleBuyer
	}
	if role != model.RoleBuyer && role != model.RoleSeller {
		return nil, validation("role must be buyer or seller")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	u, err := s.create(ctx, email, in.Password, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// EnsureAdmin creates an active admin with the given credentials unless a
// user with that email already exists.  It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	u, err := s.create(ctx, email, password, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.log.Info("admin account created", zap.Uint64("user_id", u.ID))
	return true, nil
}

func (s *AuthService) create(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Email: email, PasswordHash: hash, Role: role, IsActive: true}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "email already registered")
		}
		return nil, err
	}
	return u, nil
}

// Login checks the credentials of an active user and issues an access and
// a refresh token.  Unknown email, inactive account and wrong password all
// fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	badCredentials := unauthorized("incorrect email or password", nil)

	u, err := s.users.GetActiveByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, badCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, badCredentials
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, password)
	}

	access, accessExp, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:   access,
		AccessExpiry:  accessExp,
		RefreshToken:  refresh,
		RefreshExpiry: refreshExp,
	}, nil
}

// rehash upgrades a legacy or weaker hash after a successful login.  A
// failure is logged; the login itself still succeeds.
func (s *AuthService) rehash(ctx context.Context, u *model.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, u.ID, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
}

// Refresh exchanges a valid refresh token of an active user for a new
// access token.  The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	u, err := s.resolve(ctx, refreshToken, "could not validate refresh token")
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.IssueAccess(u)
}

// ResolveCurrentUser verifies the bearer token and loads its active user.
// A bad token and a missing or inactive user fail identically so callers
// cannot probe which accounts exist; only expiry gets its own message.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, error) {
	return s.resolve(ctx, token, "could not validate credentials")
}

func (s *AuthService) resolve(ctx context.Context, token, msg string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, unauthorized(msg, auth.ErrTokenInvalid)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, unauthorized("token has expired", err)
		}
		return nil, unauthorized(msg, err)
	}
	u, err := s.users.GetActiveByEmail(ctx, claims.Email())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized(msg, nil)
		}
		return nil, err
	}
	return u, nil
}

// RequireRole fails with ErrForbidden unless u holds exactly role.
func RequireRole(u *model.User, role model.Role) error {
	if !model.HasRole(u, role) {
		return newError(ErrForbidden, "only %ss can perform this action", role)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validation("invalid email address")
	}
	return email, nil
}
