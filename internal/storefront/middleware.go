package storefront

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

var tracer = otel.Tracer("github.com/gustavop-dev/rainy-project/internal/storefront")

// TraceMiddleware starts a server span per request. Gateway calls made while handling
// the request become its children through the otelhttp transport.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", observability.SanitizePath(r.URL.Path)),
		)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span.SetName(r.Method + " " + pattern)
				span.SetAttributes(attribute.String("http.route", pattern))
			}
		}
		span.SetAttributes(attribute.Int("http.status_code", rw.status))
		if rw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rw.status))
		}
	})
}

// ForwardCSRF moves the browser's anti-forgery token into the request context so
// gateway calls made on its behalf carry it. The cookie wins over the header.
// Nothing is validated here; the backend rejects bad tokens.
func ForwardCSRF(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				token = r.Header.Get(gateway.HeaderCSRFToken)
			}
			if token != "" {
				r = r.WithContext(requestctx.WithCSRFToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request-scoped zap logger and request id to the context
// and logs one entry per request once it completes.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := chimw.GetReqID(r.Context())

			logger := base
			ctx := r.Context()
			if rid != "" {
				logger = logger.With(zap.String("request_id", rid))
				ctx = requestctx.WithRequestID(ctx, rid)
			}
			ctx = observability.WithLogger(ctx, logger)

			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			logger.Info("request",
				zap.String("method", observability.SanitizeMethod(r.Method)),
				zap.String("path", observability.SanitizePath(r.URL.Path)),
				zap.Int("status", rw.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("remote_ip", r.RemoteAddr),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
