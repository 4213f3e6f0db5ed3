package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
)

// Access token carries public profile fields so clients don't have to fetch them
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Refresh token carries only subject. The value itself is stored on user row
type RefreshTokenClaims struct {
	jwt.RegisteredClaims
}

// Token manager with sensible default
type Config struct {
	// Secret keys to sign access and refresh tokens
	// Both required and must differ: refresh token must never pass as access one
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	switch {
	case cfg.AccessSecret == "":
		return nil, errors.New("access secret key must not be empty")
	case cfg.RefreshSecret == "":
		return nil, errors.New("refresh secret key must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secret keys must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method %q, only HMAC ones allowed", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// Issue access and refresh tokens for user
// Every call returns new pair even within the same second: each token has unique jti
func (m *TokenManager) IssuePair(user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	access, err := jwt.NewWithClaims(m.alg, AccessTokenClaims{
		RegisteredClaims: registered(user.ID, now, accessExpiresAt),
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
	}).SignedString(m.accessKey)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := jwt.NewWithClaims(m.alg, RefreshTokenClaims{
		RegisteredClaims: registered(user.ID, now, refreshExpiresAt),
	}).SignedString(m.refreshKey)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// Parse and validate access token, return its claims
func (m *TokenManager) VerifyAccess(access string) (AccessTokenClaims, error) {
	var claims AccessTokenClaims
	if err := m.parse(access, &claims, m.accessKey); err != nil {
		return claims, err
	}

	return claims, nil
}

// Parse and validate refresh token, return user id it was issued to
// Token has to be compared with the stored one anyway
func (m *TokenManager) VerifyRefresh(refresh string) (uuid.UUID, error) {
	var claims RefreshTokenClaims
	if err := m.parse(refresh, &claims, m.refreshKey); err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(claims.Subject)
}

func (m *TokenManager) parse(value string, claims jwt.Claims, key []byte) error {
	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(subject); err != nil {
		return fmt.Errorf("%w: subject is not user id", apperrors.ErrInvalidToken)
	}

	return nil
}

func registered(userID uuid.UUID, now time.Time, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}
