package auth

import (
	"context"

	"github.com/oakline/wallbed-studio/internal/domain"
)

type contextKey int

const userKey contextKey = iota

// ContextWithUser stores the authenticated user on the context.
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext extracts the authenticated user, or nil when anonymous.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userKey).(*domain.User); ok {
		return u
	}
	return nil
}
