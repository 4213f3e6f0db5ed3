package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Username string
	Email    string
	FullName string

	AvatarURL     string
	CoverImageURL string // empty if user has no cover image

	HashedPassword string

	// Current refresh token. Nil when the user has no active session
	RefreshToken *string
}

// Identifier to find user at login: username or email, whichever is set
type Identifier struct {
	Username string
	Email    string
}
