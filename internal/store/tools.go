package store

import (
	"context"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const toolSelect = `
	SELECT t.id, t.tool_name, t.vendor_id, t.category, t.cost, t.currency, t.subscription_type,
	       t.license_count, t.renewal_date, t.status, t.notes, t.organisation_id, t.tenant_id,
	       t.created_at, t.updated_at, v.vendor_name
	FROM subscriptions_tools t
	LEFT JOIN subscriptions_vendors v ON v.id = t.vendor_id`

func scanTool(row scanner) (models.Tool, error) {
	var t models.Tool
	err := row.Scan(&t.ID, &t.ToolName, &t.VendorID, &t.Category, &t.Cost, &t.Currency,
		&t.SubscriptionType, &t.LicenseCount, &t.RenewalDate, &t.Status, &t.Notes,
		&t.OrganisationID, &t.TenantID, &t.CreatedAt, &t.UpdatedAt, &t.VendorName)
	return t, err
}

// ListTools returns subscription tools in scope, newest first
func (s *Store) ListTools(ctx context.Context, scope tenant.Scope, f models.ToolFilter) (out []models.Tool, err error) {
	ctx, span := s.start(ctx, "ListTools", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "t")
	if f.Search != "" {
		w.add("t.tool_name ILIKE $%d", "%"+f.Search+"%")
	}
	if f.Status != "" {
		w.add("t.status = $%d", f.Status)
	}
	if f.Category != "" {
		w.add("t.category = $%d", f.Category)
	}
	rows, err := s.q(ctx).QueryContext(ctx, toolSelect+w.String()+" ORDER BY t.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list tools", err)
	}
	defer rows.Close()

	out = []models.Tool{}
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, wrap("scan tool", err)
		}
		out = append(out, t)
	}
	return out, wrap("list tools", rows.Err())
}

// GetTool returns one tool in scope
func (s *Store) GetTool(ctx context.Context, scope tenant.Scope, id int64) (t models.Tool, err error) {
	ctx, span := s.start(ctx, "GetTool", scope)
	defer func() { end(span, err) }()

	return s.getTool(ctx, scope, id)
}

func (s *Store) getTool(ctx context.Context, scope tenant.Scope, id int64) (models.Tool, error) {
	w := scoped(scope, "t")
	w.add("t.id = $%d", id)
	t, err := scanTool(s.q(ctx).QueryRowContext(ctx, toolSelect+w.String(), w.args...))
	return t, wrap("get tool", err)
}

// CreateTool adds a subscription tool
func (s *Store) CreateTool(ctx context.Context, scope tenant.Scope, req models.CreateToolRequest) (t models.Tool, err error) {
	ctx, span := s.start(ctx, "CreateTool", scope)
	defer func() { end(span, err) }()

	if err := checkRefs(ctx, s.q(ctx), scope, ref{"vendor_id", "subscriptions_vendors", req.VendorID}); err != nil {
		return t, wrap("create tool", err)
	}

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO subscriptions_tools (tool_name, vendor_id, category, cost, currency, subscription_type,
			license_count, renewal_date, status, notes, organisation_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		req.ToolName, req.VendorID, req.Category, req.Cost, orDefault(req.Currency, "INR"),
		orDefault(req.SubscriptionType, models.BillingMonthly), req.LicenseCount, req.RenewalDate,
		orDefault(req.Status, models.ToolActive), req.Notes, orgArg(scope), scope.TenantID,
	).Scan(&id)
	if err != nil {
		return t, wrap("create tool", err)
	}
	return s.getTool(ctx, scope, id)
}

// UpdateTool applies a partial update
func (s *Store) UpdateTool(ctx context.Context, scope tenant.Scope, id int64, req models.UpdateToolRequest) (t models.Tool, err error) {
	ctx, span := s.start(ctx, "UpdateTool", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	if req.ToolName != nil {
		st.add("tool_name", *req.ToolName)
	}
	if req.VendorID != nil {
		st.add("vendor_id", *req.VendorID)
	}
	if req.Category != nil {
		st.add("category", *req.Category)
	}
	if req.Cost != nil {
		st.add("cost", *req.Cost)
	}
	if req.Currency != nil {
		st.add("currency", *req.Currency)
	}
	if req.SubscriptionType != nil {
		st.add("subscription_type", *req.SubscriptionType)
	}
	if req.LicenseCount != nil {
		st.add("license_count", *req.LicenseCount)
	}
	if req.RenewalDate != nil {
		st.add("renewal_date", *req.RenewalDate)
	}
	if req.Status != nil {
		st.add("status", *req.Status)
	}
	if req.Notes != nil {
		st.add("notes", *req.Notes)
	}
	st.add("updated_at", s.now())

	if err := checkRefs(ctx, s.q(ctx), scope, ref{"vendor_id", "subscriptions_vendors", req.VendorID}); err != nil {
		return t, wrap("update tool", err)
	}
	if err := s.update(ctx, s.q(ctx), "subscriptions_tools", scope, id, st, ""); err != nil {
		return t, wrap("update tool", err)
	}
	return s.getTool(ctx, scope, id)
}

// DeleteTool removes a tool together with its licenses and payments
func (s *Store) DeleteTool(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteTool", scope)
	defer func() { end(span, err) }()

	return wrap("delete tool", s.remove(ctx, "subscriptions_tools", scope, id))
}
