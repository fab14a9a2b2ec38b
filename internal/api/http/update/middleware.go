package update

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/oshokin/mar-update-server/internal/logger"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

// unmatchedRoute labels requests that hit neither route.
const unmatchedRoute = "unmatched"

// instrument assigns a request id, puts a scoped logger into the request
// context, and logs and counts the request once it is answered.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := uuid.NewString()

		ctx := logger.WithKV(logger.WithName(r.Context(), "http"), "request_id", requestID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		logger.InfoKV(ctx, "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
		)

		if s.observer != nil {
			s.observer.ObserveRequest(route, status, ww.BytesWritten())
		}
	})
}
