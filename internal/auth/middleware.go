package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxTokenBytes bounds the bearer token the middleware will try to parse
const maxTokenBytes = 8 << 10

// ErrorResponse is the JSON body of an auth or request failure
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims stores verified claims on ctx
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims stored by the middleware, nil when absent
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user id, 0 when absent
func UserIDFromContext(ctx context.Context) int64 {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return 0
}

// RolesFromContext returns the authenticated user's roles
func RolesFromContext(ctx context.Context) []string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Roles
	}
	return nil
}

// paths served without a token
var publicPaths = map[string]bool{
	"/health":     true,
	"/dbping":     true,
	"/auth/login": true,
}

// WriteError answers with an ErrorResponse
func WriteError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// rejection is a 401 the middleware answers with
type rejection struct {
	code, message string
}

// bearerToken pulls a structurally plausible JWT out of an Authorization header
func bearerToken(header string) (string, *rejection) {
	if header == "" {
		return "", &rejection{"MISSING_AUTH_HEADER", "Authorization header required"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", &rejection{"INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>"}
	}
	switch {
	case token == "":
		return "", &rejection{"MISSING_TOKEN", "Token is required"}
	case len(token) > maxTokenBytes:
		return "", &rejection{"INVALID_TOKEN_FORMAT", "Invalid token format: token size exceeds maximum allowed"}
	case strings.Count(token, ".") != 2:
		return "", &rejection{"INVALID_TOKEN_FORMAT", "Invalid token format: invalid JWT token format"}
	}
	return token, nil
}

// rejectToken maps a validation error onto the code the client sees
func rejectToken(err error) rejection {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return rejection{"TOKEN_EXPIRED", "Token has expired"}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), strings.Contains(err.Error(), "signing method"):
		return rejection{"INVALID_SIGNING_METHOD", "Invalid token signing method"}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return rejection{"MALFORMED_TOKEN", "Token is malformed"}
	default:
		return rejection{"INVALID_TOKEN", "Invalid or expired token"}
	}
}

// AuthMiddleware verifies the bearer token on every non-public path and stores its
// claims on the request context. Tokens expiring within the hour get warning headers.
func AuthMiddleware(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, rej := bearerToken(r.Header.Get("Authorization"))
			if rej != nil {
				WriteError(w, rej.message, rej.code, http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				rej := rejectToken(err)
				WriteError(w, rej.message, rej.code, http.StatusUnauthorized)
				return
			}
			if claims.UserID <= 0 {
				WriteError(w, "Invalid user ID in token", "INVALID_USER_ID", http.StatusUnauthorized)
				return
			}
			if len(claims.Roles) == 0 {
				WriteError(w, "No roles assigned to user", "NO_ROLES", http.StatusUnauthorized)
				return
			}

			if claims.ExpiresAt != nil && claims.IsExpiringSoon(time.Hour) {
				left := time.Until(claims.ExpiresAt.Time)
				w.Header().Set("X-Token-Expires-At", claims.ExpiresAt.Time.Format(time.RFC3339))
				w.Header().Set("X-Token-Expires-In", left.String())
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// MustRole lets the request through when the caller holds any of roles
func MustRole(roles ...string) func(http.Handler) http.Handler {
	wanted := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			wanted = append(wanted, role)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			switch {
			case claims == nil:
				WriteError(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
			case len(wanted) == 0:
				WriteError(w, "No roles specified for this endpoint", "NO_ROLES_SPECIFIED", http.StatusInternalServerError)
			case !claims.HasRole(wanted...):
				WriteError(w, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
