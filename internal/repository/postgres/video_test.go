package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/vidtube/internal/apperrors"
	"github.com/nkiryanov/vidtube/internal/models"
	"github.com/nkiryanov/vidtube/internal/testutil"
)

func Test_VideoRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Create owner and viewer for each test
	setup := func(t *testing.T, tx pgx.Tx) (owner models.User, viewer models.User) {
		users := UserRepo{DB: tx}

		owner, err := users.CreateUser(t.Context(), newUserParams("owner"))
		require.NoError(t, err)
		viewer, err = users.CreateUser(t.Context(), newUserParams("viewer"))
		require.NoError(t, err)

		return owner, viewer
	}

	newVideo := func(ownerID uuid.UUID, title string) models.Video {
		return models.Video{
			OwnerID:     ownerID,
			Title:       title,
			VideoURL:    "https://media.example.com/videos/" + title + ".mp4",
			Duration:    decimal.RequireFromString("93.5"),
			IsPublished: true,
		}
	}

	t.Run("create and get video", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			owner, _ := setup(t, tx)
			r := VideoRepo{DB: tx}

			created, err := r.CreateVideo(t.Context(), newVideo(owner.ID, "intro"))
			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, created.ID, "ID should be generated")
			require.True(t, created.Duration.Equal(decimal.RequireFromString("93.5")))

			got, err := r.GetVideoByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
			require.Equal(t, "intro", got.Title)
			require.Equal(t, owner.ID, got.OwnerID)
		})
	})

	t.Run("increment views", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			owner, _ := setup(t, tx)
			r := VideoRepo{DB: tx}
			created, err := r.CreateVideo(t.Context(), newVideo(owner.ID, "intro"))
			require.NoError(t, err)

			require.NoError(t, r.IncrementViews(t.Context(), created.ID))
			require.NoError(t, r.IncrementViews(t.Context(), created.ID))

			got, err := r.GetVideoByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, int64(2), got.Views)

			err = r.IncrementViews(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})

	t.Run("get video not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := VideoRepo{DB: tx}

			_, err := r.GetVideoByID(t.Context(), uuid.New())

			require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})

	t.Run("watch history ordered by most recent view", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			owner, viewer := setup(t, tx)
			r := VideoRepo{DB: tx}
			first, err := r.CreateVideo(t.Context(), newVideo(owner.ID, "first"))
			require.NoError(t, err)
			second, err := r.CreateVideo(t.Context(), newVideo(owner.ID, "second"))
			require.NoError(t, err)

			require.NoError(t, r.AddToWatchHistory(t.Context(), viewer.ID, first.ID))
			require.NoError(t, r.AddToWatchHistory(t.Context(), viewer.ID, second.ID))
			require.NoError(t, r.AddToWatchHistory(t.Context(), viewer.ID, first.ID), "watching again should not fail")

			history, err := r.ListWatchHistory(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Len(t, history, 2, "video watched twice has to be listed once")
			require.Equal(t, first.ID, history[0].Video.ID, "re-watched video should be on top")
			require.Equal(t, second.ID, history[1].Video.ID)
			require.Equal(t, owner.ID, history[0].Owner.ID)
			require.Equal(t, owner.Username, history[0].Owner.Username)
			require.Equal(t, owner.AvatarURL, history[0].Owner.AvatarURL)
		})
	})

	t.Run("empty watch history", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			_, viewer := setup(t, tx)
			r := VideoRepo{DB: tx}

			history, err := r.ListWatchHistory(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Empty(t, history)
		})
	})

	t.Run("add unknown video to history", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			_, viewer := setup(t, tx)
			r := VideoRepo{DB: tx}

			err := r.AddToWatchHistory(t.Context(), viewer.ID, uuid.New())

			require.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})
}
