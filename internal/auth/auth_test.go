package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough-for-testing"
	testIssuer   = "helpdesk-api"
	testAudience = "helpdesk-api"
)

func newManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(testSecret, testIssuer, testAudience, expiry)
}

// sign mints a token from raw claims so tests can forge what GenerateToken refuses to
func sign(t *testing.T, method jwt.SigningMethod, key any, claims *Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func claimsFor(userID int64, roles []string, expiresAt time.Time) *Claims {
	return &Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    testIssuer,
			Audience:  []string{testAudience},
		},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		m       *JWTManager
		wantErr string
	}{
		{"valid", newManager(time.Hour), ""},
		{"empty secret", NewJWTManager("", testIssuer, testAudience, time.Hour), "secret is required"},
		{"short secret", NewJWTManager("short", testIssuer, testAudience, time.Hour), "at least 32"},
		{"empty issuer", NewJWTManager(testSecret, "", testAudience, time.Hour), "issuer"},
		{"empty audience", NewJWTManager(testSecret, testIssuer, "", time.Hour), "audience"},
		{"negative expiry", NewJWTManager(testSecret, testIssuer, testAudience, -time.Hour), "expiry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.ValidateConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerateTokenCarriesUserAndRoles(t *testing.T) {
	m := newManager(time.Hour)

	tok, err := m.GenerateToken(42, []string{"it_admin", "viewer"})
	require.NoError(t, err)
	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, []string{"it_admin", "viewer"}, claims.Roles)
	assert.Equal(t, "42", claims.Subject)

	_, err = m.GenerateToken(0, []string{"viewer"})
	assert.Error(t, err)
	_, err = m.GenerateToken(42, nil)
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	m := newManager(time.Hour)

	other, err := NewJWTManager(testSecret, testIssuer, "someone-else", time.Hour).GenerateToken(1, []string{"viewer"})
	require.NoError(t, err)
	_, err = m.ValidateToken(other)
	assert.Error(t, err, "audience")

	noExpiry := sign(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{UserID: 1, Roles: []string{"viewer"},
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testIssuer, Audience: []string{testAudience}}})
	_, err = m.ValidateToken(noExpiry)
	assert.Error(t, err, "expiry is required")
}

func TestClaimsRoles(t *testing.T) {
	c := &Claims{UserID: 1, Roles: []string{"org_admin", "viewer"}}
	assert.True(t, c.HasRole("it_admin", "org_admin"))
	assert.False(t, c.HasRole("super_admin"))
	assert.False(t, c.HasRole())

	assert.True(t, (&Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}).IsExpiringSoon(time.Hour))
	assert.False(t, (&Claims{}).IsExpiringSoon(time.Hour))
}

func TestAuthMiddleware(t *testing.T) {
	m := newManager(24 * time.Hour)
	valid, err := m.GenerateToken(7, []string{"viewer"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		code   string
	}{
		{"public path", "/health", "", ""},
		{"missing header", "/helpdesk/tickets", "", "MISSING_AUTH_HEADER"},
		{"basic auth", "/helpdesk/tickets", "Basic dXNlcjpwYXNz", "INVALID_AUTH_FORMAT"},
		{"empty bearer", "/helpdesk/tickets", "Bearer ", "MISSING_TOKEN"},
		{"two segments", "/helpdesk/tickets", "Bearer header.payload", "INVALID_TOKEN_FORMAT"},
		{"oversized", "/helpdesk/tickets", "Bearer " + strings.Repeat("a", maxTokenBytes) + ".b.c", "INVALID_TOKEN_FORMAT"},
		{"garbage", "/helpdesk/tickets", "Bearer invalid.token.format", "MALFORMED_TOKEN"},
		{"expired", "/helpdesk/tickets",
			"Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(7, []string{"viewer"}, time.Now().Add(-time.Minute))),
			"TOKEN_EXPIRED"},
		{"wrong secret", "/helpdesk/tickets",
			"Bearer " + sign(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough!!"), claimsFor(7, []string{"viewer"}, time.Now().Add(time.Hour))),
			"INVALID_SIGNING_METHOD"},
		{"no roles", "/helpdesk/tickets",
			"Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(7, nil, time.Now().Add(time.Hour))),
			"NO_ROLES"},
		{"valid", "/helpdesk/tickets", "Bearer " + valid, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen int64
			h := AuthMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if tt.code == "" {
				assert.Equal(t, http.StatusOK, w.Code)
				return
			}
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Zero(t, seen)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestAuthMiddlewareSetsClaimsAndExpiryWarning(t *testing.T) {
	m := newManager(30 * time.Minute)
	tok, err := m.GenerateToken(9, []string{"it_admin"})
	require.NoError(t, err)

	var got *Claims
	h := AuthMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
		assert.Equal(t, []string{"it_admin"}, RolesFromContext(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/itam/assets", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID)
	assert.NotEmpty(t, w.Header().Get("X-Token-Expires-At"))
	assert.NotEmpty(t, w.Header().Get("X-Token-Expires-In"))
}

func TestMustRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		roles  []string
		status int
	}{
		{"holds role", &Claims{UserID: 1, Roles: []string{"viewer", "it_admin"}}, []string{"org_admin", "it_admin"}, http.StatusOK},
		{"lacks role", &Claims{UserID: 1, Roles: []string{"viewer"}}, []string{"org_admin"}, http.StatusForbidden},
		{"no claims", nil, []string{"org_admin"}, http.StatusUnauthorized},
		{"blank roles", &Claims{UserID: 1, Roles: []string{"viewer"}}, []string{" ", ""}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MustRole(tt.roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/itam/assets", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
