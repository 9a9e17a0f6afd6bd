package models

import (
	"time"
)

// User represents an authenticated operator of the helpdesk
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"` // Never expose in JSON
	Name           *string    `json:"name,omitempty"`
	OrganisationID *int64     `json:"organisation_id,omitempty"`
	Roles          []string   `json:"roles"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ProfileResponse is the current user together with the scope every query runs under
type ProfileResponse struct {
	User           User   `json:"user"`
	OrganisationID *int64 `json:"organisation_id,omitempty"`
	TenantID       int64  `json:"tenant_id"`
	ScopeColumn    string `json:"scope_column"`
}

// ValidRoles defines the available roles in the system
var ValidRoles = []string{
	"viewer",
	"agent",
	"it_admin",
	"org_admin",
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	for _, validRole := range ValidRoles {
		if role == validRole {
			return true
		}
	}
	return false
}

// HasRole checks if the user has a specific role
func (u *User) HasRole(role string) bool {
	for _, userRole := range u.Roles {
		if userRole == role {
			return true
		}
	}
	return false
}

// DisplayName returns the user's name, falling back to the email address
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// Redacted returns a copy of the user with sensitive fields removed
func (u *User) Redacted() User {
	return User{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		OrganisationID: u.OrganisationID,
		Roles:          u.Roles,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}
