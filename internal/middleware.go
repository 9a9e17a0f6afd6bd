package internal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/tenant"
)

// requestLogger writes one structured line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if status >= http.StatusInternalServerError {
			s.Logger.Warn("request", fields...)
			return
		}
		s.Logger.Debug("request", fields...)
	})
}

// withScope resolves the caller's organisation or tenant once per request. With
// row-level security on, the request also gets a pinned connection carrying the scope.
func (s *Server) withScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := s.Resolver.Resolve(r.Context(), auth.UserIDFromContext(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := tenant.WithScope(r.Context(), scope)

		if s.cfg.RLSEnabled {
			var release func()
			ctx, release, err = s.Store.Session(ctx, scope)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			defer release()
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
