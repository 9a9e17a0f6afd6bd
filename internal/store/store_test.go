package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

var (
	fixedNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	orgScope = tenant.ForOrganisation(7, 1)
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, mock, New(db, WithClock(func() time.Time { return fixedNow }))
}

var ticketCols = []string{"id", "ticket_number", "title", "description", "status", "priority",
	"requester_id", "assignee_id", "category_id", "organisation_id", "tenant_id",
	"sla_due_date", "created_at", "updated_at", "resolved_at", "closed_at",
	"category", "assignee", "requester", "requester_email"}

func ticketRow(rows *sqlmock.Rows, id int64, title, status string, resolvedAt any) *sqlmock.Rows {
	return rows.AddRow(id, fmt.Sprintf("TKT-%06d", id), title, nil, status, "high",
		int64(42), nil, int64(2), int64(7), int64(1),
		nil, fixedNow.Add(-time.Hour), fixedNow, resolvedAt, nil,
		"Access", nil, "Asha", "asha@example.com")
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestListTicketsScopedByOrganisation(t *testing.T) {
	_, mock, s := setupMockDB(t)

	rows := sqlmock.NewRows(ticketCols)
	ticketRow(rows, 1, "Login issue", "open", nil)
	ticketRow(rows, 2, "Password reset", "in_progress", nil)
	mock.ExpectQuery(q("WHERE t.organisation_id = $1 AND t.is_deleted = false ORDER BY t.created_at DESC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := s.ListTickets(context.Background(), orgScope)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Login issue", got[0].Title)
	assert.Equal(t, "Access", *got[0].CategoryName)
	assert.Nil(t, got[0].AssigneeID)
	assert.Equal(t, "asha@example.com", *got[1].RequesterEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTicketsScopedByTenant(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectQuery(q("WHERE t.tenant_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(ticketCols))

	got, err := s.ListTickets(context.Background(), tenant.ForTenant(1))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTicketNotFound(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectQuery(q("FROM helpdesk_tickets t")).
		WithArgs(int64(7), int64(99)).
		WillReturnRows(sqlmock.NewRows(ticketCols))

	_, err := s.GetTicket(context.Background(), orgScope, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTicketStampsResolved(t *testing.T) {
	_, mock, s := setupMockDB(t)
	status := models.StatusResolved

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status, priority, assignee_id FROM helpdesk_tickets")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "assignee_id"}).AddRow("open", "high", nil))
	mock.ExpectExec(q("UPDATE helpdesk_tickets SET status = $1, resolved_at = $2, updated_at = $3 WHERE id = $4 AND organisation_id = $5 AND is_deleted = false")).
		WithArgs("resolved", fixedNow, fixedNow, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO helpdesk_ticket_history")).
		WithArgs(int64(5), int64(42), "status", "open", "resolved", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM helpdesk_tickets t")).
		WithArgs(int64(7), int64(5)).
		WillReturnRows(ticketRow(sqlmock.NewRows(ticketCols), 5, "Login issue", "resolved", fixedNow))

	got, err := s.UpdateTicket(context.Background(), orgScope, 42, 5, models.UpdateTicketRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "resolved", got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, fixedNow, *got.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTicketSameStatusDoesNotRestamp(t *testing.T) {
	_, mock, s := setupMockDB(t)
	status := models.StatusResolved

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status, priority, assignee_id FROM helpdesk_tickets")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "assignee_id"}).AddRow("resolved", "high", nil))
	mock.ExpectExec(q("UPDATE helpdesk_tickets SET updated_at = $1 WHERE id = $2 AND organisation_id = $3")).
		WithArgs(fixedNow, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM helpdesk_tickets t")).
		WithArgs(int64(7), int64(5)).
		WillReturnRows(ticketRow(sqlmock.NewRows(ticketCols), 5, "Login issue", "resolved", fixedNow.Add(-48*time.Hour)))

	got, err := s.UpdateTicket(context.Background(), orgScope, 42, 5, models.UpdateTicketRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-48*time.Hour), *got.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTicketUnassignWritesHistory(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status, priority, assignee_id FROM helpdesk_tickets")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "assignee_id"}).AddRow("open", "high", int64(10)))
	mock.ExpectExec(q("UPDATE helpdesk_tickets SET assignee_id = $1, updated_at = $2")).
		WithArgs(nil, fixedNow, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO helpdesk_ticket_history")).
		WithArgs(int64(5), int64(42), "assignee_id", "10", nil, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM helpdesk_tickets t")).
		WillReturnRows(ticketRow(sqlmock.NewRows(ticketCols), 5, "Login issue", "open", nil))

	_, err := s.UpdateTicket(context.Background(), orgScope, 42, 5, models.UpdateTicketRequest{Unassign: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTicketMissingRollsBack(t *testing.T) {
	_, mock, s := setupMockDB(t)
	title := "x"

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status, priority, assignee_id FROM helpdesk_tickets")).
		WithArgs(int64(404), int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateTicket(context.Background(), orgScope, 42, 404, models.UpdateTicketRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTicketIsSoft(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectExec(q("UPDATE helpdesk_tickets SET is_deleted = $1, updated_at = $2 WHERE id = $3 AND organisation_id = $4 AND is_deleted = false")).
		WithArgs(true, fixedNow, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteTicket(context.Background(), orgScope, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProblemStampsClosed(t *testing.T) {
	_, mock, s := setupMockDB(t)
	status := models.StatusClosed

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM helpdesk_problems")).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("resolved"))
	mock.ExpectExec(q("UPDATE helpdesk_problems SET status = $1, closed_at = $2, updated_at = $3 WHERE id = $4 AND organisation_id = $5")).
		WithArgs("closed", fixedNow, fixedNow, int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM helpdesk_problems p")).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "problem_number", "title", "description", "status", "priority",
			"category_id", "assignee_id", "root_cause", "workaround", "solution", "created_by",
			"organisation_id", "tenant_id", "created_at", "updated_at", "resolved_at", "closed_at",
			"linked", "category", "assignee", "created_by_name"}).
			AddRow(int64(3), "PRB-000003", "SSO outage", nil, "closed", "high",
				nil, nil, "expired cert", nil, "rotated cert", int64(42),
				int64(7), int64(1), fixedNow, fixedNow, fixedNow.Add(-time.Hour), fixedNow,
				"{11,12}", nil, nil, "Asha"))

	got, err := s.UpdateProblem(context.Background(), orgScope, 3, models.UpdateProblemRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, *got.ClosedAt)
	assert.Equal(t, []int64{11, 12}, []int64(got.LinkedTicketIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLicense(t *testing.T) {
	_, mock, s := setupMockDB(t)
	scope := tenant.ForTenant(1)

	mock.ExpectExec(q("DELETE FROM subscriptions_licenses WHERE id = $1 AND tenant_id = $2")).
		WithArgs(int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM subscriptions_licenses l")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tool_id", "license_key", "assigned_to", "device", "assigned_date",
			"expiry_date", "status", "notes", "organisation_id", "tenant_id", "created_at", "updated_at",
			"tool_name", "assignee"}).
			AddRow(int64(4), int64(9), "KEY-4", nil, nil, nil, nil, "available", nil, nil, int64(1), fixedNow, fixedNow, "Slack", nil))

	require.NoError(t, s.DeleteLicense(context.Background(), scope, 3))

	got, err := s.ListLicenses(context.Background(), scope, models.LicenseFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, int64(3), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingLicense(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectExec(q("DELETE FROM subscriptions_licenses")).
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteLicense(context.Background(), orgScope, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListToolsFilters(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectQuery(q("WHERE t.organisation_id = $1 AND t.tool_name ILIKE $2 AND t.status = $3 ORDER BY t.created_at DESC")).
		WithArgs(int64(7), "%sla%", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tool_name", "vendor_id", "category", "cost", "currency",
			"subscription_type", "license_count", "renewal_date", "status", "notes", "organisation_id",
			"tenant_id", "created_at", "updated_at", "vendor_name"}).
			AddRow(int64(1), "Slack", nil, "chat", 8.75, "USD", "per_user", 12, nil, "active", nil, int64(7),
				int64(1), fixedNow, fixedNow, nil))

	got, err := s.ListTools(context.Background(), orgScope, models.ToolFilter{Search: "sla", Status: "active"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].LicenseCount)
	assert.Nil(t, got[0].VendorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var assignmentCols = []string{"id", "asset_id", "assigned_to", "assigned_at", "returned_at",
	"condition", "notes", "organisation_id", "tenant_id", "asset_name", "asset_type", "user_name", "user_email"}

func TestReturnAssignmentMovesToHistory(t *testing.T) {
	_, mock, s := setupMockDB(t)
	ctx := context.Background()

	mock.ExpectExec(q("UPDATE asset_assignments SET returned_at = $1 WHERE id = $2 AND organisation_id = $3 AND returned_at IS NULL")).
		WithArgs(fixedNow, int64(8), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM asset_assignments aa")).
		WithArgs(int64(7), int64(8)).
		WillReturnRows(sqlmock.NewRows(assignmentCols).
			AddRow(int64(8), int64(2), int64(42), fixedNow.Add(-72*time.Hour), fixedNow, "good", nil, int64(7), int64(1),
				"ThinkPad", "laptop", "Asha", "asha@example.com"))
	mock.ExpectQuery(q("aa.returned_at IS NULL ORDER BY aa.assigned_at DESC")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(assignmentCols))
	mock.ExpectQuery(q("aa.returned_at IS NOT NULL ORDER BY aa.returned_at DESC")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(assignmentCols).
			AddRow(int64(8), int64(2), int64(42), fixedNow.Add(-72*time.Hour), fixedNow, "good", nil, int64(7), int64(1),
				"ThinkPad", "laptop", "Asha", "asha@example.com"))

	returned, err := s.ReturnAssignment(ctx, orgScope, 8)
	require.NoError(t, err)
	assert.False(t, returned.Active())

	active, err := s.ListAssignments(ctx, orgScope, AssignmentsActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	history, err := s.ListAssignments(ctx, orgScope, AssignmentsReturned)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(8), history[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAlreadyReturned(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectExec(q("UPDATE asset_assignments SET returned_at")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.ReturnAssignment(context.Background(), orgScope, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignAssetConflict(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM assets WHERE id = $1 AND organisation_id = $2 FOR UPDATE")).
		WithArgs(int64(2), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM asset_assignments WHERE asset_id = $1 AND returned_at IS NULL")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.AssignAsset(context.Background(), orgScope, 2, models.AssignAssetRequest{AssignedTo: 42})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	userCols := []string{"organisation_id", "is_active"}

	t.Run("missing profile defaults the tenant", func(t *testing.T) {
		_, mock, s := setupMockDB(t)
		mock.ExpectQuery(q("SELECT organisation_id, is_active FROM users WHERE id = $1")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(nil, true))
		mock.ExpectQuery(q("SELECT tenant_id FROM profiles WHERE id = $1")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

		scope, err := tenant.NewResolver(s, nil).Resolve(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, tenant.ForTenant(tenant.DefaultTenantID), scope)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user is unauthenticated", func(t *testing.T) {
		_, mock, s := setupMockDB(t)
		mock.ExpectQuery(q("SELECT organisation_id, is_active FROM users WHERE id = $1")).
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows(userCols))

		_, err := s.UserOrganisation(ctx, 999)
		assert.ErrorIs(t, err, tenant.ErrUnknownUser)

		mock.ExpectQuery(q("SELECT organisation_id, is_active FROM users WHERE id = $1")).
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows(userCols))
		scope, err := tenant.NewResolver(s, nil).Resolve(ctx, 999)
		assert.ErrorIs(t, err, tenant.ErrUnauthenticated)
		assert.Equal(t, tenant.Scope{}, scope)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive user is unauthenticated", func(t *testing.T) {
		_, mock, s := setupMockDB(t)
		mock.ExpectQuery(q("SELECT organisation_id, is_active FROM users WHERE id = $1")).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(7), false))

		_, err := tenant.NewResolver(s, nil).Resolve(ctx, 42)
		assert.ErrorIs(t, err, tenant.ErrUnauthenticated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHelpdeskStats(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectQuery(q("GROUP BY status, priority")).
		WithArgs(int64(7), fixedNow, fixedNow.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "count", "overdue", "due_soon"}).
			AddRow("open", "high", 3, 1, 1).
			AddRow("resolved", "high", 2, 2, 0).
			AddRow("in_progress", "low", 1, 0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM helpdesk_problems")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	st, err := s.HelpdeskStats(context.Background(), orgScope)
	require.NoError(t, err)
	assert.Equal(t, 6, st.Total)
	assert.Equal(t, 4, st.Open)
	assert.Equal(t, 1, st.SLAOverdue, "resolved tickets are never overdue")
	assert.Equal(t, 5, st.ByPriority["high"])
	assert.Equal(t, 4, st.Problems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionPinsConnectionAndSetsScope(t *testing.T) {
	_, mock, s := setupMockDB(t)

	mock.ExpectExec(q("SELECT set_config('app.current_org_id', $1, false), set_config('app.current_tenant_id', $2, false)")).
		WithArgs("7", "1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("FROM helpdesk_tickets t")).
		WillReturnRows(sqlmock.NewRows(ticketCols))
	mock.ExpectExec(q("SELECT set_config('app.current_org_id', '', false)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, release, err := s.Session(context.Background(), orgScope)
	require.NoError(t, err)
	assert.True(t, Pinned(ctx))
	assert.False(t, Pinned(context.Background()))

	_, err = s.ListTickets(ctx, orgScope)
	require.NoError(t, err)

	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateToolRejectsVendorOutsideScope(t *testing.T) {
	_, mock, s := setupMockDB(t)
	vendor := int64(99)

	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM subscriptions_vendors WHERE id = $1 AND organisation_id = $2)")).
		WithArgs(int64(99), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.UpdateTool(context.Background(), orgScope, 3, models.UpdateToolRequest{VendorID: &vendor})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "vendor_id 99")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTicketRejectsAssigneeOutsideScope(t *testing.T) {
	_, mock, s := setupMockDB(t)
	assignee := int64(500)

	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND organisation_id = $2)")).
		WithArgs(int64(500), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.CreateTicket(context.Background(), orgScope, 42, models.CreateTicketRequest{Title: "VPN", AssigneeID: &assignee})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLicenseChecksTenantUserAndDevice(t *testing.T) {
	_, mock, s := setupMockDB(t)
	user, device := int64(42), int64(11)

	mock.ExpectQuery(q("FROM users u LEFT JOIN profiles p ON p.id = u.id")).
		WithArgs(int64(42), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1 AND tenant_id = $2)")).
		WithArgs(int64(11), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.CreateLicense(context.Background(), tenant.ForTenant(1), models.CreateLicenseRequest{
		ToolID: 3, AssignedTo: &user, AssignedToDeviceID: &device,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "assigned_to_device_id 11")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTicketChecksCategoryInsideTransaction(t *testing.T) {
	_, mock, s := setupMockDB(t)
	category := int64(8)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status, priority, assignee_id FROM helpdesk_tickets")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "priority", "assignee_id"}).AddRow("open", "high", nil))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM helpdesk_categories WHERE id = $1 AND organisation_id = $2)")).
		WithArgs(int64(8), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := s.UpdateTicket(context.Background(), orgScope, 42, 5, models.UpdateTicketRequest{CategoryID: &category})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
