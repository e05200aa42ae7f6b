package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey    contextKey = "github.com/gustavop-dev/rainy-project/internal/platform/requestctx/logger"
	csrfTokenContextKey contextKey = "github.com/gustavop-dev/rainy-project/internal/platform/requestctx/csrf"
	requestIDContextKey contextKey = "github.com/gustavop-dev/rainy-project/internal/platform/requestctx/request_id"
)

var noopLogger = zap.NewNop()

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// LoggerOr returns the context logger when one was attached, otherwise fallback.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback == nil {
		return noopLogger
	}
	return fallback
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithCSRFToken attaches an anti-forgery token that outbound gateway calls
// should forward instead of the one held in the client cookie jar.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, csrfTokenContextKey, token)
}

// CSRFToken returns the token attached with WithCSRFToken.
func CSRFToken(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// WithRequestID stores the inbound request identifier so outbound calls can reuse it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestID extracts the request identifier from context when present.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
