package middleware

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/upb/emr-gateway/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"

	// BodyKey is the context key for a validated request body
	BodyKey contextKey = "validated_body"
)

// GetRequestIDFromContext returns the id assigned by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// WithPrincipal attaches the authenticated principal to the context
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext retrieves the principal stored by the auth middleware.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(auth.Principal)
	return p, ok
}

// WithBody stores a decoded and validated request body
func WithBody(ctx context.Context, body any) context.Context {
	return context.WithValue(ctx, BodyKey, body)
}

// BodyFromContext retrieves the body stored by ValidateBody.
func BodyFromContext[T any](ctx context.Context) (T, bool) {
	body, ok := ctx.Value(BodyKey).(T)
	return body, ok
}
