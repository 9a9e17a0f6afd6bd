package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/notify"
	"helpdesk-api/internal/store"
	"helpdesk-api/internal/tenant"
)

// badRequest marks client input the handler could not use
type badRequest string

func (e badRequest) Error() string { return string(e) }

// envelope wraps mutation results with the notification the client shows
type envelope struct {
	Data         any                  `json:"data,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

type errorBody struct {
	auth.ErrorResponse
	Notification *notify.Notification `json:"notification,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// classify maps an error onto the HTTP status, code and message the client sees
func classify(err error) (int, string, string) {
	var ve validator.ValidationErrors
	var br badRequest
	switch {
	case errors.Is(err, tenant.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.As(err, &ve):
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fe.Field()+" failed "+fe.Tag())
		}
		return http.StatusBadRequest, "VALIDATION_FAILED", strings.Join(fields, "; ")
	case errors.As(err, &br):
		return http.StatusBadRequest, "BAD_REQUEST", br.Error()
	default:
		return http.StatusInternalServerError, "STORE_ERROR", "request failed: " + err.Error()
	}
}

// writeError answers a failed read
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, auth.ErrorResponse{Error: msg, Code: code})
}

// mutated invalidates every cached query that depends on entity, in every scope, and
// answers with a success notification
func (s *Server) mutated(w http.ResponseWriter, r *http.Request, status int, scope tenant.Scope, entity, message string, data any) {
	if err := s.Cache.Invalidate(r.Context(), entity); err != nil {
		s.Logger.Warn("cache invalidation failed", zap.String("entity", entity), zap.Error(err))
	}
	n := s.Notifier.Success(message,
		zap.String("entity", entity),
		zap.String("scope", scope.String()),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	writeJSON(w, status, envelope{Data: data, Notification: &n})
}

// mutationFailed answers a failed mutation with a failure notification. A cancelled
// request gets no answer.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, action string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	status, code, _ := classify(err)
	n := s.Notifier.Failure(action, err,
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	writeJSON(w, status, errorBody{
		ErrorResponse: auth.ErrorResponse{Error: n.Message, Code: code},
		Notification:  &n,
	})
}

// decode reads a JSON body into v and validates it
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON")
	}
	return s.validate.Struct(v)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// scopeOf returns the scope resolved by withScope
func scopeOf(r *http.Request) tenant.Scope {
	scope, _ := tenant.FromContext(r.Context())
	return scope
}
