// Package appcontext provides utility functions for working with context in the application.

package appcontext

import "context"

type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// ContextAccessToken represents the context key for the shared-secret access token.
var (
	ContextAccessToken = contextKey("accessToken")
)

// WithAccessToken returns a new context with the provided access token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextAccessToken, token)
}

// GetAccessToken retrieves the access token from the context.
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ContextAccessToken).(string)
	return token, ok
}
