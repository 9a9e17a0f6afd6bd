package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const userColumns = `id, email, password_hash, name, organisation_id, roles, is_active,
	created_at, updated_at, last_login_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var roles pq.StringArray
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OrganisationID, &roles,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	u.Roles = roles
	return u, err
}

// UserOrganisation returns the user's organisation, nil when the user has none.
// A missing or deactivated user yields tenant.ErrUnknownUser.
func (s *Store) UserOrganisation(ctx context.Context, userID int64) (*int64, error) {
	var org *int64
	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT organisation_id, is_active FROM users WHERE id = $1", userID).Scan(&org, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenant.ErrUnknownUser
	}
	if err != nil {
		return nil, wrap("user organisation", err)
	}
	if !active {
		return nil, tenant.ErrUnknownUser
	}
	return org, nil
}

// ProfileTenant returns the tenant recorded on the user's profile, nil when absent
func (s *Store) ProfileTenant(ctx context.Context, userID int64) (*int64, error) {
	var tenantID *int64
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id FROM profiles WHERE id = $1", userID).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("profile tenant", err)
	}
	return tenantID, nil
}

// UserByEmail loads an active user for login
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1 AND is_active = true", email))
	return u, wrap("user by email", err)
}

// User loads a user by id
func (s *Store) User(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	return u, wrap("user", err)
}

// TouchLogin records a successful login
func (s *Store) TouchLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", s.now(), id)
	return wrap("touch login", err)
}
