package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/vidtube/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FullName       string
	AvatarURL      string
	CoverImageURL  string
	HashedPassword string
}

// User repository interface
// It's the only place where user credentials and the current refresh token are stored
type UserRepo interface {
	// Create user
	// If user with username or email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id, username or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByIdentifier(ctx context.Context, identifier models.Identifier) (models.User, error)

	// Check whether username or email is taken
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)

	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Update profile fields
	// If email is taken by other user has to return apperrors.ErrUserAlreadyExists
	UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)

	// Overwrite refresh token unconditionally. Nil clears it
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Replace refresh token only if the stored one equals 'expected'
	// Must be atomic: concurrent swaps with the same 'expected' value succeed at most once
	// If stored token differs (or cleared) has to return apperrors.ErrRefreshTokenStale
	SwapRefreshToken(ctx context.Context, userID uuid.UUID, expected string, next string) error
}

// Video repository interface
type VideoRepo interface {
	CreateVideo(ctx context.Context, video models.Video) (models.Video, error)

	// If video not found must return apperrors.ErrVideoNotFound
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (models.Video, error)

	// Put video on top of user watch history
	// If video not found must return apperrors.ErrVideoNotFound
	AddToWatchHistory(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error

	// If video not found must return apperrors.ErrVideoNotFound
	IncrementViews(ctx context.Context, videoID uuid.UUID) error

	// Return watched videos with their owners, most recent first
	ListWatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}

type Storage interface {
	User() UserRepo
	Video() VideoRepo

	// Run fn within transaction. Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
