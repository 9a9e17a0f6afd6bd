package store

import (
	"context"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const vendorSelect = `
	SELECT v.id, v.vendor_name, v.email, v.phone, v.website, v.notes, v.organisation_id, v.tenant_id,
	       v.created_at, v.updated_at,
	       (SELECT COUNT(*) FROM subscriptions_tools t WHERE t.vendor_id = v.id)
	FROM subscriptions_vendors v`

func scanVendor(row scanner) (models.Vendor, error) {
	var v models.Vendor
	err := row.Scan(&v.ID, &v.VendorName, &v.Email, &v.Phone, &v.Website, &v.Notes,
		&v.OrganisationID, &v.TenantID, &v.CreatedAt, &v.UpdatedAt, &v.ToolCount)
	return v, err
}

// ListVendors returns vendors in scope with their tool counts, newest first
func (s *Store) ListVendors(ctx context.Context, scope tenant.Scope, search string) (out []models.Vendor, err error) {
	ctx, span := s.start(ctx, "ListVendors", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "v")
	if search != "" {
		w.add("v.vendor_name ILIKE $%d", "%"+search+"%")
	}
	rows, err := s.q(ctx).QueryContext(ctx, vendorSelect+w.String()+" ORDER BY v.created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list vendors", err)
	}
	defer rows.Close()

	out = []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, wrap("scan vendor", err)
		}
		out = append(out, v)
	}
	return out, wrap("list vendors", rows.Err())
}

// GetVendor returns one vendor in scope
func (s *Store) GetVendor(ctx context.Context, scope tenant.Scope, id int64) (v models.Vendor, err error) {
	ctx, span := s.start(ctx, "GetVendor", scope)
	defer func() { end(span, err) }()

	return s.getVendor(ctx, scope, id)
}

func (s *Store) getVendor(ctx context.Context, scope tenant.Scope, id int64) (models.Vendor, error) {
	w := scoped(scope, "v")
	w.add("v.id = $%d", id)
	v, err := scanVendor(s.q(ctx).QueryRowContext(ctx, vendorSelect+w.String(), w.args...))
	return v, wrap("get vendor", err)
}

// CreateVendor adds a vendor
func (s *Store) CreateVendor(ctx context.Context, scope tenant.Scope, req models.CreateVendorRequest) (v models.Vendor, err error) {
	ctx, span := s.start(ctx, "CreateVendor", scope)
	defer func() { end(span, err) }()

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO subscriptions_vendors (vendor_name, email, phone, website, notes, organisation_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		req.VendorName, req.Email, req.Phone, req.Website, req.Notes, orgArg(scope), scope.TenantID,
	).Scan(&id)
	if err != nil {
		return v, wrap("create vendor", err)
	}
	return s.getVendor(ctx, scope, id)
}

// UpdateVendor applies a partial update
func (s *Store) UpdateVendor(ctx context.Context, scope tenant.Scope, id int64, req models.UpdateVendorRequest) (v models.Vendor, err error) {
	ctx, span := s.start(ctx, "UpdateVendor", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	if req.VendorName != nil {
		st.add("vendor_name", *req.VendorName)
	}
	if req.Email != nil {
		st.add("email", *req.Email)
	}
	if req.Phone != nil {
		st.add("phone", *req.Phone)
	}
	if req.Website != nil {
		st.add("website", *req.Website)
	}
	if req.Notes != nil {
		st.add("notes", *req.Notes)
	}
	st.add("updated_at", s.now())

	if err := s.update(ctx, s.q(ctx), "subscriptions_vendors", scope, id, st, ""); err != nil {
		return v, wrap("update vendor", err)
	}
	return s.getVendor(ctx, scope, id)
}

// DeleteVendor removes a vendor; its tools keep existing without one
func (s *Store) DeleteVendor(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteVendor", scope)
	defer func() { end(span, err) }()

	return wrap("delete vendor", s.remove(ctx, "subscriptions_vendors", scope, id))
}

// CountVendors counts vendors in scope
func (s *Store) CountVendors(ctx context.Context, scope tenant.Scope) (n int, err error) {
	ctx, span := s.start(ctx, "CountVendors", scope)
	defer func() { end(span, err) }()

	err = s.q(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions_vendors WHERE "+scope.Column()+" = $1", scope.Value()).Scan(&n)
	return n, wrap("count vendors", err)
}

// LicenseCounts returns the total and assigned license counts in scope
func (s *Store) LicenseCounts(ctx context.Context, scope tenant.Scope) (total, assigned int, err error) {
	ctx, span := s.start(ctx, "LicenseCounts", scope)
	defer func() { end(span, err) }()

	err = s.q(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'assigned') FROM subscriptions_licenses WHERE "+
			scope.Column()+" = $1", scope.Value()).Scan(&total, &assigned)
	return total, assigned, wrap("count licenses", err)
}
