package store

import (
	"context"
	"fmt"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const problemSelect = `
	SELECT p.id, p.problem_number, p.title, p.description, p.status, p.priority,
	       p.category_id, p.assignee_id, p.root_cause, p.workaround, p.solution, p.created_by,
	       p.organisation_id, p.tenant_id, p.created_at, p.updated_at, p.resolved_at, p.closed_at,
	       COALESCE(array_agg(pt.ticket_id ORDER BY pt.ticket_id) FILTER (WHERE pt.ticket_id IS NOT NULL), '{}'),
	       c.name, a.name, cb.name
	FROM helpdesk_problems p
	LEFT JOIN helpdesk_categories c ON c.id = p.category_id
	LEFT JOIN users a ON a.id = p.assignee_id
	LEFT JOIN users cb ON cb.id = p.created_by
	LEFT JOIN helpdesk_problem_tickets pt ON pt.problem_id = p.id`

const problemGroupBy = " GROUP BY p.id, c.name, a.name, cb.name"

func scanProblem(row scanner) (models.Problem, error) {
	var p models.Problem
	err := row.Scan(&p.ID, &p.ProblemNumber, &p.Title, &p.Description, &p.Status, &p.Priority,
		&p.CategoryID, &p.AssigneeID, &p.RootCause, &p.Workaround, &p.Solution, &p.CreatedBy,
		&p.OrganisationID, &p.TenantID, &p.CreatedAt, &p.UpdatedAt, &p.ResolvedAt, &p.ClosedAt,
		&p.LinkedTicketIDs, &p.CategoryName, &p.AssigneeName, &p.CreatedByName)
	return p, err
}

// ListProblems returns every live problem in scope with its linked ticket ids, newest first
func (s *Store) ListProblems(ctx context.Context, scope tenant.Scope) (out []models.Problem, err error) {
	ctx, span := s.start(ctx, "ListProblems", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "p")
	w.raw("p.is_deleted = false")
	rows, err := s.q(ctx).QueryContext(ctx,
		problemSelect+w.String()+problemGroupBy+" ORDER BY p.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list problems", err)
	}
	defer rows.Close()

	out = []models.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, wrap("scan problem", err)
		}
		out = append(out, p)
	}
	return out, wrap("list problems", rows.Err())
}

// GetProblem returns one live problem in scope
func (s *Store) GetProblem(ctx context.Context, scope tenant.Scope, id int64) (p models.Problem, err error) {
	ctx, span := s.start(ctx, "GetProblem", scope)
	defer func() { end(span, err) }()

	return s.getProblem(ctx, scope, id)
}

func (s *Store) getProblem(ctx context.Context, scope tenant.Scope, id int64) (models.Problem, error) {
	w := scoped(scope, "p")
	w.add("p.id = $%d", id)
	w.raw("p.is_deleted = false")
	p, err := scanProblem(s.q(ctx).QueryRowContext(ctx, problemSelect+w.String()+problemGroupBy, w.args...))
	return p, wrap("get problem", err)
}

// CreateProblem records a new problem created by userID
func (s *Store) CreateProblem(ctx context.Context, scope tenant.Scope, userID int64, req models.CreateProblemRequest) (p models.Problem, err error) {
	ctx, span := s.start(ctx, "CreateProblem", scope)
	defer func() { end(span, err) }()

	if err := checkRefs(ctx, s.q(ctx), scope,
		ref{"assignee_id", "users", req.AssigneeID},
		ref{"category_id", "helpdesk_categories", req.CategoryID}); err != nil {
		return p, wrap("create problem", err)
	}

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO helpdesk_problems (problem_number, title, description, status, priority,
			category_id, assignee_id, root_cause, workaround, created_by, organisation_id, tenant_id)
		VALUES ('PRB-' || lpad(nextval('helpdesk_problem_number_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		req.Title, req.Description, models.StatusOpen, orDefault(req.Priority, models.PriorityMedium),
		req.CategoryID, req.AssigneeID, req.RootCause, req.Workaround, userID, orgArg(scope), scope.TenantID,
	).Scan(&id)
	if err != nil {
		return p, wrap("create problem", err)
	}
	return s.getProblem(ctx, scope, id)
}

// UpdateProblem applies a partial update with the same status stamping as tickets
func (s *Store) UpdateProblem(ctx context.Context, scope tenant.Scope, id int64, req models.UpdateProblemRequest) (p models.Problem, err error) {
	ctx, span := s.start(ctx, "UpdateProblem", scope)
	defer func() { end(span, err) }()

	tx, err := s.q(ctx).BeginTx(ctx, nil)
	if err != nil {
		return p, wrap("begin", err)
	}
	defer tx.Rollback()

	var prevStatus string
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT status FROM helpdesk_problems
		WHERE id = $1 AND %s = $2 AND is_deleted = false FOR UPDATE`, scope.Column()),
		id, scope.Value()).Scan(&prevStatus)
	if err != nil {
		return p, wrap("lock problem", err)
	}
	if err := checkRefs(ctx, tx, scope,
		ref{"assignee_id", "users", req.AssigneeID},
		ref{"category_id", "helpdesk_categories", req.CategoryID}); err != nil {
		return p, wrap("update problem", err)
	}

	now := s.now()
	st := &sets{}
	if req.Title != nil {
		st.add("title", *req.Title)
	}
	if req.Description != nil {
		st.add("description", *req.Description)
	}
	if req.Priority != nil {
		st.add("priority", *req.Priority)
	}
	if req.CategoryID != nil {
		st.add("category_id", *req.CategoryID)
	}
	if req.AssigneeID != nil {
		st.add("assignee_id", *req.AssigneeID)
	}
	if req.RootCause != nil {
		st.add("root_cause", *req.RootCause)
	}
	if req.Workaround != nil {
		st.add("workaround", *req.Workaround)
	}
	if req.Solution != nil {
		st.add("solution", *req.Solution)
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
	}
	st.add("updated_at", now)

	if err := s.update(ctx, tx, "helpdesk_problems", scope, id, st, " AND is_deleted = false"); err != nil {
		return p, wrap("update problem", err)
	}
	if err := tx.Commit(); err != nil {
		return p, wrap("commit", err)
	}
	return s.getProblem(ctx, scope, id)
}

// DeleteProblem soft-deletes a problem
func (s *Store) DeleteProblem(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteProblem", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	st.add("is_deleted", true)
	st.add("updated_at", s.now())
	return wrap("delete problem", s.update(ctx, s.q(ctx), "helpdesk_problems", scope, id, st, " AND is_deleted = false"))
}

// ProblemTickets returns the live tickets linked to a problem
func (s *Store) ProblemTickets(ctx context.Context, scope tenant.Scope, problemID int64) (out []models.Ticket, err error) {
	ctx, span := s.start(ctx, "ProblemTickets", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "t")
	w.raw("t.is_deleted = false")
	w.add("t.id IN (SELECT ticket_id FROM helpdesk_problem_tickets WHERE problem_id = $%d)", problemID)
	rows, err := s.q(ctx).QueryContext(ctx, ticketSelect+w.String()+" ORDER BY t.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("problem tickets", err)
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
	return out, wrap("problem tickets", rows.Err())
}
