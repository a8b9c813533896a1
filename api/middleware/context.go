package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "role"
)

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole stores the authenticated role on the context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}

// UserIDFromContext returns the authenticated user id, uuid.Nil when absent.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	raw, ok := ctx.Value(ctxUserID).(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RoleFromContext returns the authenticated user's role, empty when absent.
func RoleFromContext(ctx context.Context) enums.UserRole {
	raw, ok := ctx.Value(ctxRole).(string)
	if !ok {
		return ""
	}
	return enums.UserRole(raw)
}
