package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, updated_at, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token`

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(),
		params.Username,
		params.Email,
		params.FullName,
		params.AvatarURL,
		params.CoverImageURL,
		params.HashedPassword,
	)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case isUniqueViolation(err):
		return user, apperrors.ErrUserAlreadyExists
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

// Empty identifier parts never match: username and email are not empty in database
const getUserByIdentifier = `-- name: GetUserByIdentifier
SELECT ` + userColumns + ` FROM users
WHERE username = $1 OR email = $2
LIMIT 1
`

func (r *UserRepo) GetUserByIdentifier(ctx context.Context, identifier models.Identifier) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByIdentifier, identifier.Username, identifier.Email)
	return collectUser(rows)
}

const existsByUsernameOrEmail = `-- name: ExistsByUsernameOrEmail
SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
`

func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error) {
	var exists bool

	err := r.DB.QueryRow(ctx, existsByUsernameOrEmail, username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, userID, hashedPassword)
	return checkAffected(tag, err)
}

const updateDetails = `-- name: UpdateDetails
UPDATE users
SET full_name = $2, email = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateDetails, userID, fullName, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	case isUniqueViolation(err):
		return user, apperrors.ErrUserAlreadyExists
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token = $2, updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	tag, err := r.DB.Exec(ctx, setRefreshToken, userID, token)
	return checkAffected(tag, err)
}

// Row is locked by the first UPDATE; concurrent statement re-checks the condition
// against the committed row and matches nothing
const swapRefreshToken = `-- name: SwapRefreshToken
UPDATE users
SET refresh_token = $3, updated_at = now()
WHERE id = $1 AND refresh_token = $2
`

func (r *UserRepo) SwapRefreshToken(ctx context.Context, userID uuid.UUID, expected string, next string) error {
	tag, err := r.DB.Exec(ctx, swapRefreshToken, userID, expected, next)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenStale)
	default:
		return nil
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.HashedPassword,
		&u.RefreshToken,
	)
	return u, err
}

func checkAffected(tag pgconn.CommandTag, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
