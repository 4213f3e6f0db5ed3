package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Video struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     decimal.Decimal // seconds
	Views        int64
	IsPublished  bool
	CreatedAt    time.Time
}

// Public part of the user profile shown next to the videos
type VideoOwner struct {
	ID        uuid.UUID
	Username  string
	FullName  string
	AvatarURL string
}

// Entry of user watch history
type WatchedVideo struct {
	Video     Video
	Owner     VideoOwner
	WatchedAt time.Time
}
