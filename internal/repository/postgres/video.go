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
)

type VideoRepo struct {
	DB DBTX
}

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published, created_at`

const createVideo = `-- name: CreateVideo
INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, is_published)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + videoColumns

// Create video. If video ID is not set new one is generated
func (r *VideoRepo) CreateVideo(ctx context.Context, v models.Video) (models.Video, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createVideo,
		v.ID, v.OwnerID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Duration, v.Views, v.IsPublished,
	)
	video, err := pgx.CollectOneRow(rows, rowToVideo)
	if err != nil {
		return video, fmt.Errorf("db error: %w", err)
	}

	return video, nil
}

const getVideoByID = `-- name: GetVideoByID
SELECT ` + videoColumns + ` FROM videos
WHERE id = $1
`

func (r *VideoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (models.Video, error) {
	rows, _ := r.DB.Query(ctx, getVideoByID, videoID)
	video, err := pgx.CollectOneRow(rows, rowToVideo)

	switch {
	case err == nil:
		return video, nil
	case errors.Is(err, pgx.ErrNoRows):
		return video, apperrors.ErrVideoNotFound
	default:
		return video, fmt.Errorf("db error: %w", err)
	}
}

// clock_timestamp() keeps order of views made within one transaction
const addToWatchHistory = `-- name: AddToWatchHistory
INSERT INTO watch_history (user_id, video_id, watched_at)
VALUES ($1, $2, clock_timestamp())
ON CONFLICT (user_id, video_id) DO UPDATE
SET watched_at = EXCLUDED.watched_at
`

func (r *VideoRepo) AddToWatchHistory(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, addToWatchHistory, userID, videoID)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation && pgErr.ConstraintName == "watch_history_video_id_fkey":
		return apperrors.ErrVideoNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const incrementViews = `-- name: IncrementViews
UPDATE videos
SET views = views + 1
WHERE id = $1
`

func (r *VideoRepo) IncrementViews(ctx context.Context, videoID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, incrementViews, videoID)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrVideoNotFound
	default:
		return nil
	}
}

const listWatchHistory = `-- name: ListWatchHistory
SELECT
	v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url, v.duration, v.views, v.is_published, v.created_at,
	u.id, u.username, u.full_name, u.avatar_url,
	h.watched_at
FROM watch_history h
JOIN videos v ON v.id = h.video_id
JOIN users u ON u.id = v.owner_id
WHERE h.user_id = $1
ORDER BY h.watched_at DESC
`

func (r *VideoRepo) ListWatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	rows, _ := r.DB.Query(ctx, listWatchHistory, userID)
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WatchedVideo, error) {
		var w models.WatchedVideo
		err := row.Scan(
			&w.Video.ID, &w.Video.OwnerID, &w.Video.Title, &w.Video.Description, &w.Video.VideoURL,
			&w.Video.ThumbnailURL, &w.Video.Duration, &w.Video.Views, &w.Video.IsPublished, &w.Video.CreatedAt,
			&w.Owner.ID, &w.Owner.Username, &w.Owner.FullName, &w.Owner.AvatarURL,
			&w.WatchedAt,
		)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return history, nil
}

func rowToVideo(row pgx.CollectableRow) (models.Video, error) {
	var v models.Video
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL,
		&v.ThumbnailURL, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt,
	)
	return v, err
}
