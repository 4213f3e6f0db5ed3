package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
	"github.com/nkiryanov/vidtube/internal/service/auth"
	"github.com/nkiryanov/vidtube/internal/service/media"
)

type UserService struct {
	hasher   auth.PasswordHasher
	storage  repository.Storage
	uploader media.Uploader
	logger   logger.Logger
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage, uploader media.Uploader, l logger.Logger) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &UserService{
		hasher:   hasher,
		storage:  storage,
		uploader: uploader,
		logger:   l,
	}
}

type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string

	// Avatar is required, cover image is optional
	Avatar     *media.File
	CoverImage *media.File
}

// Register new user
// Checks go from cheapest to most expensive: media host is touched only when input is valid
// and username and email are free
func (s *UserService) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	var user models.User

	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	fullName := strings.TrimSpace(params.FullName)

	if username == "" || email == "" || fullName == "" || strings.TrimSpace(params.Password) == "" {
		return user, fmt.Errorf("%w: all fields are required", apperrors.ErrValidation)
	}

	exists, err := s.storage.User().ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return user, fmt.Errorf("can't check user existence. Err: %w", err)
	}
	if exists {
		return user, apperrors.ErrUserAlreadyExists
	}

	if params.Avatar == nil {
		return user, fmt.Errorf("%w: avatar file is required", apperrors.ErrValidation)
	}

	avatar, err := s.uploader.Upload(ctx, *params.Avatar)
	if err != nil {
		return user, fmt.Errorf("%w: avatar: %w", apperrors.ErrUpload, err)
	}

	var coverURL string
	if params.CoverImage != nil {
		cover, err := s.uploader.Upload(ctx, *params.CoverImage)
		switch err {
		case nil:
			coverURL = cover.URL
		default:
			s.logger.Warn("cover image upload failed, user registered without it", "username", username, "error", err)
		}
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		AvatarURL:      avatar.URL,
		CoverImageURL:  coverURL,
		HashedPassword: hash,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *UserService) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" || email == "" {
		return models.User{}, fmt.Errorf("%w: full name and email are required", apperrors.ErrValidation)
	}

	return s.storage.User().UpdateDetails(ctx, userID, fullName, email)
}

// Watched videos, most recent first. Never nil
func (s *UserService) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	history, err := s.storage.Video().ListWatchHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}

	return history, nil
}

// Put video on top of the user watch history and count the view
func (s *UserService) RecordView(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	return s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := storage.Video().AddToWatchHistory(ctx, userID, videoID); err != nil {
			return err
		}
		return storage.Video().IncrementViews(ctx, videoID)
	})
}
