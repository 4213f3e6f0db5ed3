package apperrors

import (
	"errors"
)

var (
	// Malformed or missing input
	ErrValidation = errors.New("validation failed")

	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid user credentials")

	ErrUnauthorized = errors.New("unauthorized")

	// Signature, algorithm or expiry check failed. Callers must not tell which one
	ErrInvalidToken = errors.New("invalid token")

	// Refresh token is signed correctly but was superseded by rotation or revoked by logout
	ErrRefreshTokenStale = errors.New("refresh token is expired or used")

	ErrVideoNotFound = errors.New("video not found")

	// Mandatory asset could not be stored on media host
	ErrUpload = errors.New("upload failed")
)
