package store

import (
	"context"
	"database/sql"
	"strconv"

	"helpdesk-api/internal/tenant"
)

type connKey struct{}

func connFrom(ctx context.Context) *sql.Conn {
	c, _ := ctx.Value(connKey{}).(*sql.Conn)
	return c
}

// Session pins a connection for one request and sets the row-level security GUCs
// from scope. Queries made with the returned context use that connection. release
// clears the settings and hands the connection back to the pool.
func (s *Store) Session(ctx context.Context, scope tenant.Scope) (context.Context, func(), error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return ctx, nil, err
	}
	org := ""
	if scope.OrganisationID != nil {
		org = strconv.FormatInt(*scope.OrganisationID, 10)
	}
	_, err = conn.ExecContext(ctx,
		"SELECT set_config('app.current_org_id', $1, false), set_config('app.current_tenant_id', $2, false)",
		org, strconv.FormatInt(scope.TenantID, 10))
	if err != nil {
		conn.Close()
		return ctx, nil, err
	}
	release := func() {
		// the request context may already be cancelled here
		_, _ = conn.ExecContext(context.Background(),
			"SELECT set_config('app.current_org_id', '', false), set_config('app.current_tenant_id', '', false)")
		conn.Close()
	}
	return context.WithValue(ctx, connKey{}, conn), release, nil
}

// Pinned reports whether ctx carries a session connection. A pinned connection runs
// one statement at a time.
func Pinned(ctx context.Context) bool {
	return connFrom(ctx) != nil
}
