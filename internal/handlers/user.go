package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/service/media"
	"github.com/nkiryanov/vidtube/internal/service/user"
)

// Files above the limit are kept on disk by multipart reader, not rejected
const maxMemoryUpload = 10 << 20

// Sanitized user profile: no password hash, no refresh token
type userResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.AvatarURL,
		CoverImage: u.CoverImageURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func handleRegister(userService userService, l logger.Logger) http.Handler {
	type form struct {
		Username string `json:"username" validate:"notblank,max=50"`
		Email    string `json:"email" validate:"notblank,email"`
		FullName string `json:"fullName" validate:"notblank,max=100"`
		Password string `json:"password" validate:"notblank"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
			render.DecodeError(w, err)
			return
		}
		defer r.MultipartForm.RemoveAll() // nolint:errcheck

		data := form{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			FullName: r.FormValue("fullName"),
			Password: r.FormValue("password"),
		}
		if err := render.Validate(w, data); err != nil {
			return
		}

		avatar, closeAvatar, err := formFile(r, "avatar")
		if err != nil {
			render.DecodeError(w, err)
			return
		}
		defer closeAvatar()

		cover, closeCover, err := formFile(r, "coverImage")
		if err != nil {
			render.DecodeError(w, err)
			return
		}
		defer closeCover()

		created, err := userService.Register(r.Context(), user.RegisterParams{
			Username:   data.Username,
			Email:      data.Email,
			FullName:   data.FullName,
			Password:   data.Password,
			Avatar:     avatar,
			CoverImage: cover,
		})

		switch {
		case err == nil:
			render.JSON(w, http.StatusCreated, newUserResponse(created), "User registered successfully")
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User with email or username already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrValidation) && avatar == nil:
			render.ServiceError(w, "Avatar file is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrValidation):
			render.ServiceError(w, "All fields are required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUpload):
			l.Warn("Avatar upload failed", "error", err)
			render.ServiceError(w, "Avatar file upload failed", http.StatusBadRequest)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// Return file from multipart form or nil if it was not sent
func formFile(r *http.Request, field string) (*media.File, func(), error) {
	f, header, err := r.FormFile(field)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil, func() {}, nil
	case err != nil:
		return nil, func() {}, err
	}

	return &media.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func handleUserDetails() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, http.StatusOK, newUserResponse(user), "User fetched successfully")
	})
}

func handleUpdateUserDetails(userService userService, l logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"fullName" validate:"notblank,max=100"`
		Email    string `json:"email" validate:"notblank,email"`
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

		updated, err := userService.UpdateDetails(r.Context(), user.ID, data.FullName, data.Email)

		switch {
		case err == nil:
			render.JSON(w, http.StatusOK, newUserResponse(updated), "User details updated successfully")
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Email is taken by other user", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User does not exist", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrValidation):
			render.ServiceError(w, "All fields are required", http.StatusBadRequest)
		default:
			l.Error("Failed to update user details", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
