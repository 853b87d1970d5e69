package testutil

import (
	"context"
	"net/http"

	"creditbridge/internal/platform/middleware"
)

// WithOperator adds operator claims to the request context, simulating what
// the auth middleware does for an authenticated request.
func WithOperator(req *http.Request, operator, role string) *http.Request {
	ctx := req.Context()
	if operator != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyOperator, operator)
	}
	if role != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	}
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
