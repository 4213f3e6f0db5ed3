package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/handlers/render"
	"github.com/nkiryanov/vidtube/internal/handlers/userctx"
	"github.com/nkiryanov/vidtube/internal/logger"
)

func handleWatchHistory(userService userService, l logger.Logger) http.Handler {
	type owner struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		FullName string    `json:"fullName"`
		Avatar   string    `json:"avatar"`
	}
	type video struct {
		ID          uuid.UUID       `json:"id"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		VideoURL    string          `json:"videoFile"`
		Thumbnail   string          `json:"thumbnail"`
		Duration    decimal.Decimal `json:"duration"`
		Views       int64           `json:"views"`
		IsPublished bool            `json:"isPublished"`
		CreatedAt   time.Time       `json:"createdAt"`
		WatchedAt   time.Time       `json:"watchedAt"`
		Owner       owner           `json:"owner"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		history, err := userService.WatchHistory(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get watch history", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]video, 0, len(history))
		for _, h := range history {
			resp = append(resp, video{
				ID:          h.Video.ID,
				Title:       h.Video.Title,
				Description: h.Video.Description,
				VideoURL:    h.Video.VideoURL,
				Thumbnail:   h.Video.ThumbnailURL,
				Duration:    h.Video.Duration,
				Views:       h.Video.Views,
				IsPublished: h.Video.IsPublished,
				CreatedAt:   h.Video.CreatedAt,
				WatchedAt:   h.WatchedAt,
				Owner: owner{
					ID:       h.Owner.ID,
					Username: h.Owner.Username,
					FullName: h.Owner.FullName,
					Avatar:   h.Owner.AvatarURL,
				},
			})
		}

		render.JSON(w, http.StatusOK, resp, "Watch history fetched successfully")
	})
}

func handleRecordView(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		videoID, err := uuid.Parse(r.PathValue("videoID"))
		if err != nil {
			render.ServiceError(w, "Invalid video id", http.StatusBadRequest)
			return
		}

		err = userService.RecordView(r.Context(), user.ID, videoID)

		switch {
		case err == nil:
			render.JSON(w, http.StatusOK, nil, "Video added to watch history")
		case errors.Is(err, apperrors.ErrVideoNotFound):
			render.ServiceError(w, "Video does not exist", http.StatusNotFound)
		default:
			l.Error("Failed to record video view", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
