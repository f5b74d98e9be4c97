package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/storefront-api/internal/model"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrTokenExpired is returned by Verify when the token's exp is in the past.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenConfig is the immutable signing configuration.  Access and refresh
// tokens share the secret and algorithm and differ only in lifetime.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string // HS256, HS384 or HS512
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the signed token payload: sub (email), role, id and exp.
type Claims struct {
	Role model.Role `json:"role"`
	ID   uint64     `json:"id"`
	jwt.RegisteredClaims
}

// Email returns the subject claim.
func (c Claims) Email() string { return c.Subject }

// TokenManager issues and verifies HMAC-signed JWTs.
type TokenManager struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	now    func() time.Time
}

// Option customises a TokenManager.
type Option func(*TokenManager)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager validates cfg and returns a manager.  Zero TTLs fall back
// to the defaults.
func NewTokenManager(cfg TokenConfig, opts ...Option) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: empty token secret")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	// keep our own copy so callers cannot mutate the secret later
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	m := &TokenManager{cfg: cfg, method: method, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// IssueAccess signs a short-lived access token for the user.
func (m *TokenManager) IssueAccess(u *model.User) (string, time.Time, error) {
	return m.issue(u, m.cfg.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for the user.
func (m *TokenManager) IssueRefresh(u *model.User) (string, time.Time, error) {
	return m.issue(u, m.cfg.RefreshTTL)
}

func (m *TokenManager) issue(u *model.User, ttl time.Duration) (string, time.Time, error) {
	exp := m.now().UTC().Add(ttl)
	claims := Claims{
		Role: u.Role,
		ID:   u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its
// claims.  Expiry failures wrap ErrTokenExpired; everything else wraps
// ErrTokenInvalid.
func (m *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
