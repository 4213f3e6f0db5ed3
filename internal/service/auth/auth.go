package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
	"github.com/nkiryanov/vidtube/internal/service/auth/tokenmanager"
)

// Cookie names are part of the public API: the same names are used in response bodies
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"

	authHeaderName   = "Authorization"
	authHeaderScheme = "Bearer"
)

type Config struct {
	// Hasher to use during registration, login and password change
	// If not set BcryptHasher is used
	Hasher PasswordHasher

	// Drop 'Secure' cookie attribute. Only for local development over plain http
	CookieInsecure bool
}

type AuthService struct {
	tokens   *tokenmanager.TokenManager
	hasher   PasswordHasher
	userRepo repository.UserRepo

	cookieSecure bool
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if tokens == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &AuthService{
		tokens:       tokens,
		hasher:       hasher,
		userRepo:     userRepo,
		cookieSecure: !cfg.CookieInsecure,
	}, nil
}

func (s *AuthService) Hasher() PasswordHasher {
	return s.hasher
}

// Login user by username or email and issue new token pair
// Previous session of the user (if any) stops working: only one refresh token is stored
func (s *AuthService) Login(ctx context.Context, identifier models.Identifier, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	identifier = models.Identifier{
		Username: strings.ToLower(strings.TrimSpace(identifier.Username)),
		Email:    strings.ToLower(strings.TrimSpace(identifier.Email)),
	}
	if identifier.Username == "" && identifier.Email == "" {
		return models.User{}, pair, fmt.Errorf("%w: username or email is required", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		return user, pair, err
	}

	if !VerifyPassword(s.hasher, user.HashedPassword, password) {
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.userRepo.SetRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	if err != nil {
		return user, models.TokenPair{}, fmt.Errorf("refresh token could not be stored. %w", err)
	}
	user.RefreshToken = &pair.Refresh.Value

	return user, pair, nil
}

// Revoke user refresh token. Issued access tokens remain valid until expiry
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.SetRefreshToken(ctx, userID, nil)
}

// Rotate token pair
// Presented token has to be the one stored on user; it's replaced atomically so concurrent
// calls with the same token succeed at most once
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	if refresh == "" {
		return pair, apperrors.ErrUnauthorized
	}

	userID, err := s.tokens.VerifyRefresh(refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, fmt.Errorf("%w: user not exists", apperrors.ErrInvalidToken)
	case err != nil:
		return pair, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != refresh {
		return pair, apperrors.ErrRefreshTokenStale
	}

	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.userRepo.SwapRefreshToken(ctx, user.ID, refresh, pair.Refresh.Value)
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Replace user password hash. Issued tokens are kept
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password must not be blank", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !VerifyPassword(s.hasher, user.HashedPassword, oldPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, hash)
}

// Find user by access token from cookie or 'Authorization: Bearer' header
// Cookie wins if both present
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.User, error) {
	access := accessFromRequest(r)
	if access == "" {
		return models.User{}, apperrors.ErrUnauthorized
	}

	claims, err := s.tokens.VerifyAccess(access)
	if err != nil {
		return models.User{}, err
	}

	// Subject is checked during verification
	userID := uuid.MustParse(claims.Subject)

	user, err := s.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return user, fmt.Errorf("%w: user not exists", apperrors.ErrInvalidToken)
	case err != nil:
		return user, err
	}

	return user, nil
}

// Write both tokens as cookies with the same attributes
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.cookie(AccessCookieName, pair.Access.Value, int(s.tokens.AccessTTL().Seconds())))
	http.SetCookie(w, s.cookie(RefreshCookieName, pair.Refresh.Value, int(s.tokens.RefreshTTL().Seconds())))
}

// Ask client to drop both cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(AccessCookieName, "", -1))
	http.SetCookie(w, s.cookie(RefreshCookieName, "", -1))
}

// Refresh token from cookie or, if not set, the one passed in request body
func (s *AuthService) RefreshFromRequest(r *http.Request, fromBody string) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(fromBody)
}

func (s *AuthService) cookie(name string, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func accessFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get(authHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, authHeaderScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
