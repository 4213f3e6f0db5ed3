package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

type errorLogger interface {
	Error(msg string, args ...any)
}

// Put authenticated user to request context or reject request
func AuthMiddleware(as authService, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrUnauthorized):
				render.ServiceError(w, "Unauthorized request", http.StatusUnauthorized)
				return
			case errors.Is(err, apperrors.ErrInvalidToken):
				render.ServiceError(w, "Invalid access token", http.StatusUnauthorized)
				return
			default:
				l.Error("authentication failed", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
