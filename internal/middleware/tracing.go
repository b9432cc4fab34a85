package middleware

import (
	"context"
	"net/http"

	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// TracingMiddleware adds trace ID to all requests without logging them.
// Use LoggingMiddleware where request logs are wanted as well.
type TracingMiddleware struct{}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware() *TracingMiddleware {
	return &TracingMiddleware{}
}

// Handler returns the tracing middleware handler
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, traceID := traceContext(r)
		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// traceContext reuses an incoming or already assigned trace id, or mints one.
func traceContext(r *http.Request) (context.Context, string) {
	ctx := r.Context()
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = logger.NewTraceID()
	}
	return logger.WithTraceID(ctx, traceID), traceID
}
