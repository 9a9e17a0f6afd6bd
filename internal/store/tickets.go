package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const ticketSelect = `
	SELECT t.id, t.ticket_number, t.title, t.description, t.status, t.priority,
	       t.requester_id, t.assignee_id, t.category_id, t.organisation_id, t.tenant_id,
	       t.sla_due_date, t.created_at, t.updated_at, t.resolved_at, t.closed_at,
	       c.name, a.name, r.name, r.email
	FROM helpdesk_tickets t
	LEFT JOIN helpdesk_categories c ON c.id = t.category_id
	LEFT JOIN users a ON a.id = t.assignee_id
	LEFT JOIN users r ON r.id = t.requester_id`

func scanTicket(row scanner) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.TicketNumber, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.RequesterID, &t.AssigneeID, &t.CategoryID, &t.OrganisationID, &t.TenantID,
		&t.SLADueDate, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt, &t.ClosedAt,
		&t.CategoryName, &t.AssigneeName, &t.RequesterName, &t.RequesterEmail)
	return t, err
}

// ListTickets returns every live ticket in scope, newest first
func (s *Store) ListTickets(ctx context.Context, scope tenant.Scope) (out []models.Ticket, err error) {
	ctx, span := s.start(ctx, "ListTickets", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "t")
	w.raw("t.is_deleted = false")
	rows, err := s.q(ctx).QueryContext(ctx, ticketSelect+w.String()+" ORDER BY t.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list tickets", err)
	}
	defer rows.Close()

	out = []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, wrap("scan ticket", err)
		}
		out = append(out, t)
	}
	return out, wrap("list tickets", rows.Err())
}

// GetTicket returns one live ticket in scope
func (s *Store) GetTicket(ctx context.Context, scope tenant.Scope, id int64) (t models.Ticket, err error) {
	ctx, span := s.start(ctx, "GetTicket", scope)
	defer func() { end(span, err) }()

	return s.getTicket(ctx, s.q(ctx), scope, id)
}

func (s *Store) getTicket(ctx context.Context, q rowQuerier, scope tenant.Scope, id int64) (models.Ticket, error) {
	w := scoped(scope, "t")
	w.add("t.id = $%d", id)
	w.raw("t.is_deleted = false")
	t, err := scanTicket(q.QueryRowContext(ctx, ticketSelect+w.String(), w.args...))
	return t, wrap("get ticket", err)
}

// CreateTicket opens a ticket raised by requesterID
func (s *Store) CreateTicket(ctx context.Context, scope tenant.Scope, requesterID int64, req models.CreateTicketRequest) (t models.Ticket, err error) {
	ctx, span := s.start(ctx, "CreateTicket", scope)
	defer func() { end(span, err) }()

	if err := checkRefs(ctx, s.q(ctx), scope,
		ref{"assignee_id", "users", req.AssigneeID},
		ref{"category_id", "helpdesk_categories", req.CategoryID}); err != nil {
		return t, wrap("create ticket", err)
	}

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO helpdesk_tickets (ticket_number, title, description, status, priority,
			requester_id, assignee_id, category_id, sla_due_date, organisation_id, tenant_id)
		VALUES ('TKT-' || lpad(nextval('helpdesk_ticket_number_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		req.Title, req.Description, models.StatusOpen, orDefault(req.Priority, models.PriorityMedium),
		requesterID, req.AssigneeID, req.CategoryID, req.SLADueDate, orgArg(scope), scope.TenantID,
	).Scan(&id)
	if err != nil {
		return t, wrap("create ticket", err)
	}
	return s.getTicket(ctx, s.q(ctx), scope, id)
}

// UpdateTicket applies a partial update. Moving into resolved or closed stamps the
// matching timestamp; status, priority and assignee changes are written to history.
func (s *Store) UpdateTicket(ctx context.Context, scope tenant.Scope, actorID, id int64, req models.UpdateTicketRequest) (t models.Ticket, err error) {
	ctx, span := s.start(ctx, "UpdateTicket", scope)
	defer func() { end(span, err) }()

	tx, err := s.q(ctx).BeginTx(ctx, nil)
	if err != nil {
		return t, wrap("begin", err)
	}
	defer tx.Rollback()

	var prevStatus, prevPriority string
	var prevAssignee *int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT status, priority, assignee_id FROM helpdesk_tickets
		WHERE id = $1 AND %s = $2 AND is_deleted = false FOR UPDATE`, scope.Column()),
		id, scope.Value()).Scan(&prevStatus, &prevPriority, &prevAssignee)
	if err != nil {
		return t, wrap("lock ticket", err)
	}
	if err := checkRefs(ctx, tx, scope,
		ref{"assignee_id", "users", req.AssigneeID},
		ref{"category_id", "helpdesk_categories", req.CategoryID}); err != nil {
		return t, wrap("update ticket", err)
	}

	now := s.now()
	st := &sets{}
	var changes []historyEntry
	if req.Title != nil {
		st.add("title", *req.Title)
	}
	if req.Description != nil {
		st.add("description", *req.Description)
	}
	if req.CategoryID != nil {
		st.add("category_id", *req.CategoryID)
	}
	if req.SLADueDate != nil {
		st.add("sla_due_date", *req.SLADueDate)
	}
	if req.Priority != nil && *req.Priority != prevPriority {
		st.add("priority", *req.Priority)
		changes = append(changes, historyEntry{"priority", &prevPriority, req.Priority})
	}
	if req.Status != nil && *req.Status != prevStatus {
		st.add("status", *req.Status)
		resolvedAt, closedAt := models.TransitionStamps(prevStatus, *req.Status, now)
		if resolvedAt != nil {
			st.add("resolved_at", *resolvedAt)
		}
		if closedAt != nil {
			st.add("closed_at", *closedAt)
		}
		changes = append(changes, historyEntry{"status", &prevStatus, req.Status})
	}
	switch {
	case req.Unassign && prevAssignee != nil:
		st.add("assignee_id", nil)
		changes = append(changes, historyEntry{"assignee_id", idString(prevAssignee), nil})
	case req.AssigneeID != nil && !sameID(prevAssignee, req.AssigneeID):
		st.add("assignee_id", *req.AssigneeID)
		changes = append(changes, historyEntry{"assignee_id", idString(prevAssignee), idString(req.AssigneeID)})
	}
	st.add("updated_at", now)

	if err := s.update(ctx, tx, "helpdesk_tickets", scope, id, st, " AND is_deleted = false"); err != nil {
		return t, wrap("update ticket", err)
	}
	for _, c := range changes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO helpdesk_ticket_history (ticket_id, user_id, field_name, old_value, new_value, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, actorID, c.field, c.old, c.new, now); err != nil {
			return t, wrap("write history", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return t, wrap("commit", err)
	}
	return s.getTicket(ctx, s.q(ctx), scope, id)
}

type historyEntry struct {
	field string
	old   *string
	new   *string
}

func idString(id *int64) *string {
	if id == nil {
		return nil
	}
	s := strconv.FormatInt(*id, 10)
	return &s
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteTicket soft-deletes a ticket
func (s *Store) DeleteTicket(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteTicket", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	st.add("is_deleted", true)
	st.add("updated_at", s.now())
	return wrap("delete ticket", s.update(ctx, s.q(ctx), "helpdesk_tickets", scope, id, st, " AND is_deleted = false"))
}

// TicketComments returns the conversation on a ticket, oldest first
func (s *Store) TicketComments(ctx context.Context, scope tenant.Scope, ticketID int64) (out []models.TicketComment, err error) {
	ctx, span := s.start(ctx, "TicketComments", scope)
	defer func() { end(span, err) }()

	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT c.id, c.ticket_id, c.user_id, c.comment, c.is_internal, c.tenant_id, c.created_at, u.name, u.email
		FROM helpdesk_ticket_comments c
		JOIN helpdesk_tickets t ON t.id = c.ticket_id
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.ticket_id = $1 AND t.%s = $2 AND t.is_deleted = false
		ORDER BY c.created_at ASC`, scope.Column()), ticketID, scope.Value())
	if err != nil {
		return nil, wrap("ticket comments", err)
	}
	defer rows.Close()

	out = []models.TicketComment{}
	for rows.Next() {
		var c models.TicketComment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.UserID, &c.Comment, &c.IsInternal, &c.TenantID,
			&c.CreatedAt, &c.UserName, &c.UserEmail); err != nil {
			return nil, wrap("scan comment", err)
		}
		out = append(out, c)
	}
	return out, wrap("ticket comments", rows.Err())
}

// AddComment appends a comment to a ticket in scope
func (s *Store) AddComment(ctx context.Context, scope tenant.Scope, userID, ticketID int64, req models.CreateCommentRequest) (c models.TicketComment, err error) {
	ctx, span := s.start(ctx, "AddComment", scope)
	defer func() { end(span, err) }()

	err = s.q(ctx).QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO helpdesk_ticket_comments (ticket_id, user_id, comment, is_internal, organisation_id, tenant_id)
		SELECT t.id, $2, $3, $4, t.organisation_id, t.tenant_id
		FROM helpdesk_tickets t
		WHERE t.id = $1 AND t.%s = $5 AND t.is_deleted = false
		RETURNING id, ticket_id, user_id, comment, is_internal, tenant_id, created_at`, scope.Column()),
		ticketID, userID, req.Comment, req.IsInternal, scope.Value(),
	).Scan(&c.ID, &c.TicketID, &c.UserID, &c.Comment, &c.IsInternal, &c.TenantID, &c.CreatedAt)
	return c, wrap("add comment", err)
}

// TicketHistory returns field changes on a ticket, newest first
func (s *Store) TicketHistory(ctx context.Context, scope tenant.Scope, ticketID int64) (out []models.TicketHistory, err error) {
	ctx, span := s.start(ctx, "TicketHistory", scope)
	defer func() { end(span, err) }()

	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT h.id, h.ticket_id, h.user_id, h.field_name, h.old_value, h.new_value, h.timestamp, u.name
		FROM helpdesk_ticket_history h
		JOIN helpdesk_tickets t ON t.id = h.ticket_id
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.ticket_id = $1 AND t.%s = $2 AND t.is_deleted = false
		ORDER BY h.timestamp DESC`, scope.Column()), ticketID, scope.Value())
	if err != nil {
		return nil, wrap("ticket history", err)
	}
	defer rows.Close()

	out = []models.TicketHistory{}
	for rows.Next() {
		var h models.TicketHistory
		if err := rows.Scan(&h.ID, &h.TicketID, &h.UserID, &h.FieldName, &h.OldValue, &h.NewValue,
			&h.Timestamp, &h.UserName); err != nil {
			return nil, wrap("scan history", err)
		}
		out = append(out, h)
	}
	return out, wrap("ticket history", rows.Err())
}

// TicketAttachments returns attachment metadata, newest first
func (s *Store) TicketAttachments(ctx context.Context, scope tenant.Scope, ticketID int64) (out []models.TicketAttachment, err error) {
	ctx, span := s.start(ctx, "TicketAttachments", scope)
	defer func() { end(span, err) }()

	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT f.id, f.ticket_id, f.file_name, f.file_url, f.file_size, f.uploaded_by, f.uploaded_at, u.name
		FROM helpdesk_ticket_attachments f
		JOIN helpdesk_tickets t ON t.id = f.ticket_id
		LEFT JOIN users u ON u.id = f.uploaded_by
		WHERE f.ticket_id = $1 AND t.%s = $2 AND t.is_deleted = false
		ORDER BY f.uploaded_at DESC`, scope.Column()), ticketID, scope.Value())
	if err != nil {
		return nil, wrap("ticket attachments", err)
	}
	defer rows.Close()

	out = []models.TicketAttachment{}
	for rows.Next() {
		var f models.TicketAttachment
		if err := rows.Scan(&f.ID, &f.TicketID, &f.FileName, &f.FileURL, &f.FileSize, &f.UploadedBy,
			&f.UploadedAt, &f.UploadedByName); err != nil {
			return nil, wrap("scan attachment", err)
		}
		out = append(out, f)
	}
	return out, wrap("ticket attachments", rows.Err())
}

// TicketProblems returns the problems linked to a ticket
func (s *Store) TicketProblems(ctx context.Context, scope tenant.Scope, ticketID int64) (out []models.LinkedProblem, err error) {
	ctx, span := s.start(ctx, "TicketProblems", scope)
	defer func() { end(span, err) }()

	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT pt.id, pt.problem_id, pt.ticket_id, pt.created_at, p.problem_number, p.title, p.status
		FROM helpdesk_problem_tickets pt
		JOIN helpdesk_problems p ON p.id = pt.problem_id
		JOIN helpdesk_tickets t ON t.id = pt.ticket_id
		WHERE pt.ticket_id = $1 AND t.%[1]s = $2 AND p.%[1]s = $2
		  AND t.is_deleted = false AND p.is_deleted = false
		ORDER BY pt.created_at DESC`, scope.Column()), ticketID, scope.Value())
	if err != nil {
		return nil, wrap("ticket problems", err)
	}
	defer rows.Close()

	out = []models.LinkedProblem{}
	for rows.Next() {
		var lp models.LinkedProblem
		if err := rows.Scan(&lp.ID, &lp.ProblemID, &lp.TicketID, &lp.CreatedAt,
			&lp.ProblemNumber, &lp.ProblemTitle, &lp.ProblemStatus); err != nil {
			return nil, wrap("scan linked problem", err)
		}
		out = append(out, lp)
	}
	return out, wrap("ticket problems", rows.Err())
}

// LinkProblem attaches a problem to a ticket; both must be live and in scope
func (s *Store) LinkProblem(ctx context.Context, scope tenant.Scope, ticketID, problemID int64) (lp models.LinkedProblem, err error) {
	ctx, span := s.start(ctx, "LinkProblem", scope)
	defer func() { end(span, err) }()

	err = s.q(ctx).QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO helpdesk_problem_tickets (problem_id, ticket_id)
		SELECT p.id, t.id
		FROM helpdesk_problems p, helpdesk_tickets t
		WHERE p.id = $1 AND t.id = $2 AND p.%[1]s = $3 AND t.%[1]s = $3
		  AND p.is_deleted = false AND t.is_deleted = false
		RETURNING id, problem_id, ticket_id, created_at`, scope.Column()),
		problemID, ticketID, scope.Value(),
	).Scan(&lp.ID, &lp.ProblemID, &lp.TicketID, &lp.CreatedAt)
	return lp, wrap("link problem", err)
}

// HelpdeskStats counts the scoped ticket queue
func (s *Store) HelpdeskStats(ctx context.Context, scope tenant.Scope) (st models.HelpdeskStats, err error) {
	ctx, span := s.start(ctx, "HelpdeskStats", scope)
	defer func() { end(span, err) }()

	st = models.HelpdeskStats{ByStatus: map[string]int{}, ByPriority: map[string]int{}}
	now := s.now()
	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT status, priority, COUNT(*),
		       COUNT(*) FILTER (WHERE sla_due_date < $2),
		       COUNT(*) FILTER (WHERE sla_due_date >= $2 AND sla_due_date < $3)
		FROM helpdesk_tickets
		WHERE %s = $1 AND is_deleted = false
		GROUP BY status, priority`, scope.Column()),
		scope.Value(), now, now.Add(24*time.Hour))
	if err != nil {
		return st, wrap("helpdesk stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, priority string
		var n, overdue, dueSoon int
		if err := rows.Scan(&status, &priority, &n, &overdue, &dueSoon); err != nil {
			return st, wrap("scan stats", err)
		}
		st.Total += n
		st.ByStatus[status] += n
		st.ByPriority[priority] += n
		if status != models.StatusResolved && status != models.StatusClosed {
			st.Open += n
			st.SLAOverdue += overdue
			st.SLADueSoon += dueSoon
		}
	}
	if err := rows.Err(); err != nil {
		return st, wrap("helpdesk stats", err)
	}

	err = s.q(ctx).QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM helpdesk_problems WHERE %s = $1 AND is_deleted = false", scope.Column()),
		scope.Value()).Scan(&st.Problems)
	return st, wrap("count problems", err)
}
