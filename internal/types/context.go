package types

import (
	"context"
	"log/slog"
)

// Context Keys
type contextKey string

const (
	authTokenKey contextKey = "auth_token"
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// WithAuthToken stores the caller's bearer token in the context. The token is
// forwarded verbatim to the upstream organization API, which owns
// authentication; this service never inspects it.
func WithAuthToken(ctx context.Context, token SecretString) context.Context {
	return context.WithValue(ctx, authTokenKey, token)
}

// GetAuthToken retrieves the caller's bearer token from the context.
// Returns false when no token is set or the token is empty.
func GetAuthToken(ctx context.Context) (SecretString, bool) {
	token, ok := ctx.Value(authTokenKey).(SecretString)
	return token, ok && token != ""
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLogger stores a request-scoped logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the logger from the context.
// The returned logger is expected to have been pre-enriched with request-scoped
// fields (e.g., request_id) by middleware before storage.
// Returns nil if no logger has been set.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return nil
}
