package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"clientbilling/observability"
)

// RequestLogger stores a request-scoped logger on the request context and logs
// each completed request with its status and latency.
func RequestLogger(logger *zap.Logger) func(e *core.RequestEvent) error {
	logger = observability.OrNop(logger)
	return func(e *core.RequestEvent) error {
		reqLogger := logger.With(
			zap.String("request_id", requestID(e.Request)),
			zap.String("method", e.Request.Method),
			zap.String("path", e.Request.URL.Path),
		)
		e.Request = e.Request.WithContext(observability.WithLogger(e.Request.Context(), reqLogger))

		start := time.Now()
		err := e.Next()

		status := e.Status()
		if err != nil && status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case err != nil:
			reqLogger.Error("request completed", append(fields, zap.Error(err))...)
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request completed", fields...)
		default:
			reqLogger.Info("request completed", fields...)
		}
		return err
	}
}

// requestID reuses an upstream X-Request-Id header when present.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
