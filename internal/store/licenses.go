package store

import (
	"context"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const licenseSelect = `
	SELECT l.id, l.tool_id, l.license_key, l.assigned_to, l.assigned_to_device_id, l.assigned_date,
	       l.expiry_date, l.status, l.notes, l.organisation_id, l.tenant_id, l.created_at, l.updated_at,
	       t.tool_name, u.name
	FROM subscriptions_licenses l
	LEFT JOIN subscriptions_tools t ON t.id = l.tool_id
	LEFT JOIN users u ON u.id = l.assigned_to`

func scanLicense(row scanner) (models.License, error) {
	var l models.License
	err := row.Scan(&l.ID, &l.ToolID, &l.LicenseKey, &l.AssignedTo, &l.AssignedToDeviceID,
		&l.AssignedDate, &l.ExpiryDate, &l.Status, &l.Notes, &l.OrganisationID, &l.TenantID,
		&l.CreatedAt, &l.UpdatedAt, &l.ToolName, &l.AssigneeName)
	return l, err
}

// ListLicenses returns licenses in scope, newest first. Search matches the key or the tool name.
func (s *Store) ListLicenses(ctx context.Context, scope tenant.Scope, f models.LicenseFilter) (out []models.License, err error) {
	ctx, span := s.start(ctx, "ListLicenses", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "l")
	if f.Search != "" {
		w.add("(l.license_key ILIKE $%d OR t.tool_name ILIKE $%d)", "%"+f.Search+"%")
	}
	if f.Status != "" {
		w.add("l.status = $%d", f.Status)
	}
	rows, err := s.q(ctx).QueryContext(ctx, licenseSelect+w.String()+" ORDER BY l.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list licenses", err)
	}
	defer rows.Close()

	out = []models.License{}
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, wrap("scan license", err)
		}
		out = append(out, l)
	}
	return out, wrap("list licenses", rows.Err())
}

// GetLicense returns one license in scope
func (s *Store) GetLicense(ctx context.Context, scope tenant.Scope, id int64) (l models.License, err error) {
	ctx, span := s.start(ctx, "GetLicense", scope)
	defer func() { end(span, err) }()

	return s.getLicense(ctx, scope, id)
}

func (s *Store) getLicense(ctx context.Context, scope tenant.Scope, id int64) (models.License, error) {
	w := scoped(scope, "l")
	w.add("l.id = $%d", id)
	l, err := scanLicense(s.q(ctx).QueryRowContext(ctx, licenseSelect+w.String(), w.args...))
	return l, wrap("get license", err)
}

// CreateLicense adds a license to a tool in scope
func (s *Store) CreateLicense(ctx context.Context, scope tenant.Scope, req models.CreateLicenseRequest) (l models.License, err error) {
	ctx, span := s.start(ctx, "CreateLicense", scope)
	defer func() { end(span, err) }()

	if err := checkRefs(ctx, s.q(ctx), scope,
		ref{"assigned_to", "users", req.AssignedTo},
		ref{"assigned_to_device_id", "assets", req.AssignedToDeviceID}); err != nil {
		return l, wrap("create license", err)
	}

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO subscriptions_licenses (tool_id, license_key, assigned_to, assigned_to_device_id,
			assigned_date, expiry_date, status, notes, organisation_id, tenant_id)
		SELECT t.id, $2, $3, $4, $5, $6, $7, $8, $9, $10
		FROM subscriptions_tools t
		WHERE t.id = $1 AND t.`+scope.Column()+` = $11
		RETURNING id`,
		req.ToolID, req.LicenseKey, req.AssignedTo, req.AssignedToDeviceID, req.AssignedDate,
		req.ExpiryDate, orDefault(req.Status, "available"), req.Notes, orgArg(scope), scope.TenantID,
		scope.Value(),
	).Scan(&id)
	if err != nil {
		return l, wrap("create license", err)
	}
	return s.getLicense(ctx, scope, id)
}

// UpdateLicense applies a partial update
func (s *Store) UpdateLicense(ctx context.Context, scope tenant.Scope, id int64, req models.UpdateLicenseRequest) (l models.License, err error) {
	ctx, span := s.start(ctx, "UpdateLicense", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	if req.LicenseKey != nil {
		st.add("license_key", *req.LicenseKey)
	}
	if req.AssignedTo != nil {
		st.add("assigned_to", *req.AssignedTo)
	}
	if req.AssignedToDeviceID != nil {
		st.add("assigned_to_device_id", *req.AssignedToDeviceID)
	}
	if req.AssignedDate != nil {
		st.add("assigned_date", *req.AssignedDate)
	}
	if req.ExpiryDate != nil {
		st.add("expiry_date", *req.ExpiryDate)
	}
	if req.Status != nil {
		st.add("status", *req.Status)
	}
	if req.Notes != nil {
		st.add("notes", *req.Notes)
	}
	st.add("updated_at", s.now())

	if err := checkRefs(ctx, s.q(ctx), scope,
		ref{"assigned_to", "users", req.AssignedTo},
		ref{"assigned_to_device_id", "assets", req.AssignedToDeviceID}); err != nil {
		return l, wrap("update license", err)
	}
	if err := s.update(ctx, s.q(ctx), "subscriptions_licenses", scope, id, st, ""); err != nil {
		return l, wrap("update license", err)
	}
	return s.getLicense(ctx, scope, id)
}

// DeleteLicense removes a license
func (s *Store) DeleteLicense(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteLicense", scope)
	defer func() { end(span, err) }()

	return wrap("delete license", s.remove(ctx, "subscriptions_licenses", scope, id))
}
