package internal

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/models"
	"helpdesk-api/internal/store"
)

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Login runs before any scope exists, so no RLS session here
	user, err := s.Store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		auth.WriteError(w, "Invalid credentials", "INVALID_CREDENTIALS", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		auth.WriteError(w, "Invalid credentials", "INVALID_CREDENTIALS", http.StatusUnauthorized)
		return
	}

	if err := s.Store.TouchLogin(r.Context(), user.ID); err != nil {
		// Log error but don't fail login
		s.Logger.Warn("failed to update last_login_at", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	if len(user.Roles) == 0 {
		user.Roles = []string{"viewer"}
	}
	token, err := s.JWTManager.GenerateToken(user.ID, user.Roles)
	if err != nil {
		auth.WriteError(w, "Failed to generate token", "TOKEN_ERROR", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Redacted(),
	})
}

// getUserProfile returns the current user with the scope their queries run under
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Store.User(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	scope := scopeOf(r)
	writeJSON(w, http.StatusOK, models.ProfileResponse{
		User:           user.Redacted(),
		OrganisationID: scope.OrganisationID,
		TenantID:       scope.TenantID,
		ScopeColumn:    scope.Column(),
	})
}
