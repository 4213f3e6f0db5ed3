package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
)

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required_without=Email"`
		Email    string `json:"email" validate:"omitempty,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User userResponse `json:"user"`
		tokensResponse
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := authService.Login(r.Context(), models.Identifier{Username: data.Username, Email: data.Email}, data.Password)

		switch {
		case err == nil:
			authService.SetTokens(w, pair)
			render.JSON(w, http.StatusOK, response{
				User:           newUserResponse(user),
				tokensResponse: tokensResponse{pair.Access.Value, pair.Refresh.Value},
			}, "User logged in successfully")
		case errors.Is(err, apperrors.ErrValidation):
			render.ServiceError(w, "Username or email is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User does not exist", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid user credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		err := authService.Logout(r.Context(), user.ID)

		switch {
		case err == nil:
			authService.ClearTokens(w)
			render.JSON(w, http.StatusOK, nil, "User logged out")
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User does not exist", http.StatusNotFound)
		default:
			l.Error("Failed to logout user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// Refresh token is read from cookie first and from json body otherwise. Body is optional
func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data request
		err := json.NewDecoder(r.Body).Decode(&data)
		if err != nil && !errors.Is(err, io.EOF) {
			render.DecodeError(w, err)
			return
		}

		pair, err := authService.Refresh(r.Context(), authService.RefreshFromRequest(r, data.RefreshToken))

		switch {
		case err == nil:
			authService.SetTokens(w, pair)
			render.JSON(w, http.StatusOK, tokensResponse{pair.Access.Value, pair.Refresh.Value}, "Access token refreshed")
		case errors.Is(err, apperrors.ErrUnauthorized):
			render.ServiceError(w, "Unauthorized request", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrInvalidToken):
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenStale):
			render.ServiceError(w, "Refresh token is expired or used", http.StatusUnauthorized)
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleChangePassword(authService authService, l logger.Logger) http.Handler {
	type request struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"notblank"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = authService.ChangePassword(r.Context(), user.ID, data.OldPassword, data.NewPassword)

		switch {
		case err == nil:
			render.JSON(w, http.StatusOK, nil, "Password changed successfully")
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid old password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrValidation):
			render.ServiceError(w, "New password must not be blank", http.StatusBadRequest)
		default:
			l.Error("Failed to change password", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
