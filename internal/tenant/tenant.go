// Package tenant resolves the organisation or tenant every query is scoped to.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

//go:generate mockgen -source=tenant.go -destination=mocks/mocks.go -package=mocks Directory

// DefaultTenantID is used when neither the user nor the profile names a tenant
const DefaultTenantID int64 = 1

// ErrUnauthenticated is returned when there is no authenticated user to scope by
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnknownUser is returned by a Directory when the user does not exist or is inactive
var ErrUnknownUser = errors.New("unknown user")

// Scope identifies the rows a caller may see. When OrganisationID is set it wins,
// otherwise TenantID is used.
type Scope struct {
	OrganisationID *int64
	TenantID       int64
}

// ForOrganisation returns an organisation scope
func ForOrganisation(orgID, tenantID int64) Scope {
	return Scope{OrganisationID: &orgID, TenantID: tenantID}
}

// ForTenant returns a tenant-only scope
func ForTenant(tenantID int64) Scope {
	return Scope{TenantID: tenantID}
}

// Column is the column every scoped query filters on
func (s Scope) Column() string {
	if s.OrganisationID != nil {
		return "organisation_id"
	}
	return "tenant_id"
}

// Value is the value bound against Column
func (s Scope) Value() int64 {
	if s.OrganisationID != nil {
		return *s.OrganisationID
	}
	return s.TenantID
}

// String renders the scope as a stable tag, e.g. "org:7" or "tenant:1"
func (s Scope) String() string {
	if s.OrganisationID != nil {
		return "org:" + strconv.FormatInt(*s.OrganisationID, 10)
	}
	return "tenant:" + strconv.FormatInt(s.TenantID, 10)
}

// Directory looks up the user and profile records scope resolution needs.
// UserOrganisation reports ErrUnknownUser for a missing or inactive user. Otherwise
// a nil id with a nil error means the value is absent.
type Directory interface {
	UserOrganisation(ctx context.Context, userID int64) (*int64, error)
	ProfileTenant(ctx context.Context, userID int64) (*int64, error)
}

// Resolver turns an authenticated user into a Scope
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver creates a Resolver backed by dir
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve returns the caller's scope. The organisation takes precedence; the tenant
// falls back to DefaultTenantID when the profile names none. A user that no longer
// exists or is inactive is unauthenticated.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Scope, error) {
	if userID <= 0 {
		return Scope{}, ErrUnauthenticated
	}

	orgID, err := r.dir.UserOrganisation(ctx, userID)
	if errors.Is(err, ErrUnknownUser) {
		r.logger.Debug("scope rejected", zap.Int64("user_id", userID), zap.Error(err))
		return Scope{}, ErrUnauthenticated
	}
	if err != nil {
		return Scope{}, fmt.Errorf("lookup user organisation: %w", err)
	}

	tenantID := DefaultTenantID
	pt, err := r.dir.ProfileTenant(ctx, userID)
	if err != nil {
		return Scope{}, fmt.Errorf("lookup profile tenant: %w", err)
	}
	if pt != nil {
		tenantID = *pt
	}

	scope := Scope{OrganisationID: orgID, TenantID: tenantID}
	r.logger.Debug("scope resolved",
		zap.Int64("user_id", userID),
		zap.String("scope", scope.String()))
	return scope, nil
}

type ctxKey struct{}

// WithScope stores a resolved scope on the context
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored by WithScope
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
