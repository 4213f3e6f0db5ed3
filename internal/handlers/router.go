package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/handlers/middleware"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/service/user"
)

const usersPrefix = "/api/v1/users"

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService, logger)

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(userService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh-token", handleTokenRefresh(authService, logger))

	apiuser.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	apiuser.Handle("POST /change-password", withAuth(handleChangePassword(authService, logger)))
	apiuser.Handle("GET /user-details", withAuth(handleUserDetails()))
	apiuser.Handle("PATCH /update-user-details", withAuth(handleUpdateUserDetails(userService, logger)))
	apiuser.Handle("GET /watch-history", withAuth(handleWatchHistory(userService, logger)))
	apiuser.Handle("POST /watch-history/{videoID}", withAuth(handleRecordView(userService, logger)))

	root := http.NewServeMux()
	root.Handle(usersPrefix+"/", http.StripPrefix(usersPrefix, apiuser))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Login user by username or email
	// Has to return apperrors.ErrUserNotFound if user not found
	// and apperrors.ErrInvalidCredentials if password not match
	Login(ctx context.Context, identifier models.Identifier, password string) (models.User, models.TokenPair, error)

	// Revoke user refresh token
	Logout(ctx context.Context, userID uuid.UUID) error

	// Rotate tokens using refresh token
	// If token absent: has to return apperrors.ErrUnauthorized
	// If token malformed or expired: apperrors.ErrInvalidToken
	// If token was rotated or revoked: apperrors.ErrRefreshTokenStale
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Has to return apperrors.ErrInvalidCredentials if old password not match
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	// Get request and return user if it authenticated or error
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)

	// Set or remove auth cookies
	SetTokens(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)

	// Get refresh token from cookie or request body
	RefreshFromRequest(r *http.Request, fromBody string) string
}

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if username or email taken,
	// apperrors.ErrValidation on bad input and apperrors.ErrUpload if avatar not stored
	Register(ctx context.Context, params user.RegisterParams) (models.User, error)

	UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)

	// Has to return apperrors.ErrVideoNotFound if video not exists
	RecordView(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error
}
