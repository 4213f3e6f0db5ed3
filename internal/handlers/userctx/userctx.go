package userctx

import (
	"context"

	"github.com/nkiryanov/vidtube/internal/models"
)

type ctxKey struct{}

// Create a new context with authenticated user
func New(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// Extract authenticated user from the context
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}
