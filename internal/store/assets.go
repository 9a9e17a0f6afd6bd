package store

import (
	"context"
	"fmt"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

// Assignment list states
const (
	AssignmentsActive   = "active"
	AssignmentsReturned = "returned"
)

// AssetFilter holds the server-side asset list filters
type AssetFilter struct {
	Status string
	Search string
}

const assetColumns = `id, name, asset_type, serial_number, status, purchase_date, purchase_price,
	current_value, depreciation_method, useful_life_years, notes, organisation_id, tenant_id,
	created_at, updated_at`

func scanAsset(row scanner) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.Name, &a.AssetType, &a.SerialNumber, &a.Status, &a.PurchaseDate,
		&a.PurchasePrice, &a.CurrentValue, &a.DepreciationMethod, &a.UsefulLifeYears, &a.Notes,
		&a.OrganisationID, &a.TenantID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListAssets returns assets in scope, newest first
func (s *Store) ListAssets(ctx context.Context, scope tenant.Scope, f AssetFilter) (out []models.Asset, err error) {
	ctx, span := s.start(ctx, "ListAssets", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "")
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.Search != "" {
		w.add("(name ILIKE $%d OR serial_number ILIKE $%d)", "%"+f.Search+"%")
	}
	rows, err := s.q(ctx).QueryContext(ctx,
		"SELECT "+assetColumns+" FROM assets"+w.String()+" ORDER BY created_at DESC", w.args...)
	if err != nil {
		return nil, wrap("list assets", err)
	}
	defer rows.Close()

	out = []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, wrap("scan asset", err)
		}
		out = append(out, a)
	}
	return out, wrap("list assets", rows.Err())
}

// GetAsset returns one asset in scope
func (s *Store) GetAsset(ctx context.Context, scope tenant.Scope, id int64) (a models.Asset, err error) {
	ctx, span := s.start(ctx, "GetAsset", scope)
	defer func() { end(span, err) }()

	return s.getAsset(ctx, scope, id)
}

func (s *Store) getAsset(ctx context.Context, scope tenant.Scope, id int64) (models.Asset, error) {
	w := scoped(scope, "")
	w.add("id = $%d", id)
	a, err := scanAsset(s.q(ctx).QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets"+w.String(), w.args...))
	return a, wrap("get asset", err)
}

// CreateAsset registers an asset
func (s *Store) CreateAsset(ctx context.Context, scope tenant.Scope, req models.CreateAssetRequest) (a models.Asset, err error) {
	ctx, span := s.start(ctx, "CreateAsset", scope)
	defer func() { end(span, err) }()

	a, err = scanAsset(s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO assets (name, asset_type, serial_number, status, purchase_date, purchase_price,
			current_value, depreciation_method, useful_life_years, notes, organisation_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+assetColumns,
		req.Name, req.AssetType, req.SerialNumber, orDefault(req.Status, models.AssetActive),
		req.PurchaseDate, req.PurchasePrice, req.CurrentValue, req.DepreciationMethod,
		req.UsefulLifeYears, req.Notes, orgArg(scope), scope.TenantID))
	return a, wrap("create asset", err)
}

// UpdateAsset applies a partial update
func (s *Store) UpdateAsset(ctx context.Context, scope tenant.Scope, id int64, req models.UpdateAssetRequest) (a models.Asset, err error) {
	ctx, span := s.start(ctx, "UpdateAsset", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	if req.Name != nil {
		st.add("name", *req.Name)
	}
	if req.AssetType != nil {
		st.add("asset_type", *req.AssetType)
	}
	if req.SerialNumber != nil {
		st.add("serial_number", *req.SerialNumber)
	}
	if req.Status != nil {
		st.add("status", *req.Status)
	}
	if req.PurchaseDate != nil {
		st.add("purchase_date", *req.PurchaseDate)
	}
	if req.PurchasePrice != nil {
		st.add("purchase_price", *req.PurchasePrice)
	}
	if req.CurrentValue != nil {
		st.add("current_value", *req.CurrentValue)
	}
	if req.DepreciationMethod != nil {
		st.add("depreciation_method", *req.DepreciationMethod)
	}
	if req.UsefulLifeYears != nil {
		st.add("useful_life_years", *req.UsefulLifeYears)
	}
	if req.Notes != nil {
		st.add("notes", *req.Notes)
	}
	st.add("updated_at", s.now())

	if err := s.update(ctx, s.q(ctx), "assets", scope, id, st, ""); err != nil {
		return a, wrap("update asset", err)
	}
	return s.getAsset(ctx, scope, id)
}

// DeleteAsset removes an asset and its assignment history
func (s *Store) DeleteAsset(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteAsset", scope)
	defer func() { end(span, err) }()

	return wrap("delete asset", s.remove(ctx, "assets", scope, id))
}

const assignmentSelect = `
	SELECT aa.id, aa.asset_id, aa.assigned_to, aa.assigned_at, aa.returned_at,
	       aa.condition_at_assignment, aa.notes, aa.organisation_id, aa.tenant_id,
	       a.name, a.asset_type, u.name, u.email
	FROM asset_assignments aa
	JOIN assets a ON a.id = aa.asset_id
	LEFT JOIN users u ON u.id = aa.assigned_to`

func scanAssignment(row scanner) (models.AssetAssignment, error) {
	var aa models.AssetAssignment
	err := row.Scan(&aa.ID, &aa.AssetID, &aa.AssignedTo, &aa.AssignedAt, &aa.ReturnedAt,
		&aa.ConditionAtAssignment, &aa.Notes, &aa.OrganisationID, &aa.TenantID,
		&aa.AssetName, &aa.AssetType, &aa.UserName, &aa.UserEmail)
	return aa, err
}

// AssignAsset hands an asset to a user. An asset can have only one open assignment.
func (s *Store) AssignAsset(ctx context.Context, scope tenant.Scope, assetID int64, req models.AssignAssetRequest) (aa models.AssetAssignment, err error) {
	ctx, span := s.start(ctx, "AssignAsset", scope)
	defer func() { end(span, err) }()

	tx, err := s.q(ctx).BeginTx(ctx, nil)
	if err != nil {
		return aa, wrap("begin", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT id FROM assets WHERE id = $1 AND %s = $2 FOR UPDATE", scope.Column()),
		assetID, scope.Value()).Scan(&id)
	if err != nil {
		return aa, wrap("lock asset", err)
	}

	var open int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM asset_assignments WHERE asset_id = $1 AND returned_at IS NULL",
		assetID).Scan(&open); err != nil {
		return aa, wrap("check assignment", err)
	}
	if open > 0 {
		return aa, fmt.Errorf("asset %d is already assigned: %w", assetID, ErrConflict)
	}
	if err := checkRefs(ctx, tx, scope, ref{"assigned_to", "users", &req.AssignedTo}); err != nil {
		return aa, wrap("assign asset", err)
	}

	var assignmentID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO asset_assignments (asset_id, assigned_to, assigned_at, condition_at_assignment, notes,
			organisation_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		assetID, req.AssignedTo, s.now(), req.ConditionAtAssignment, req.Notes, orgArg(scope), scope.TenantID,
	).Scan(&assignmentID)
	if err != nil {
		return aa, wrap("assign asset", err)
	}
	if err := tx.Commit(); err != nil {
		return aa, wrap("commit", err)
	}
	return s.getAssignment(ctx, scope, assignmentID)
}

func (s *Store) getAssignment(ctx context.Context, scope tenant.Scope, id int64) (models.AssetAssignment, error) {
	w := scoped(scope, "aa")
	w.add("aa.id = $%d", id)
	aa, err := scanAssignment(s.q(ctx).QueryRowContext(ctx, assignmentSelect+w.String(), w.args...))
	return aa, wrap("get assignment", err)
}

// ListAssignments returns open assignments (state "active") or returned history
// (state "returned") in scope
func (s *Store) ListAssignments(ctx context.Context, scope tenant.Scope, state string) (out []models.AssetAssignment, err error) {
	ctx, span := s.start(ctx, "ListAssignments", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "aa")
	order := " ORDER BY aa.assigned_at DESC"
	switch state {
	case AssignmentsReturned:
		w.raw("aa.returned_at IS NOT NULL")
		order = " ORDER BY aa.returned_at DESC"
	default:
		w.raw("aa.returned_at IS NULL")
	}
	rows, err := s.q(ctx).QueryContext(ctx, assignmentSelect+w.String()+order, w.args...)
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	defer rows.Close()

	out = []models.AssetAssignment{}
	for rows.Next() {
		aa, err := scanAssignment(rows)
		if err != nil {
			return nil, wrap("scan assignment", err)
		}
		out = append(out, aa)
	}
	return out, wrap("list assignments", rows.Err())
}

// ReturnAssignment closes an open assignment
func (s *Store) ReturnAssignment(ctx context.Context, scope tenant.Scope, id int64) (aa models.AssetAssignment, err error) {
	ctx, span := s.start(ctx, "ReturnAssignment", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	st.add("returned_at", s.now())
	if err := s.update(ctx, s.q(ctx), "asset_assignments", scope, id, st, " AND returned_at IS NULL"); err != nil {
		return aa, wrap("return assignment", err)
	}
	return s.getAssignment(ctx, scope, id)
}

// AssetStats summarises the asset register in scope
func (s *Store) AssetStats(ctx context.Context, scope tenant.Scope) (st models.AssetStats, err error) {
	ctx, span := s.start(ctx, "AssetStats", scope)
	defer func() { end(span, err) }()

	st = models.AssetStats{ByStatus: map[string]int{}}
	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT status, COUNT(*), COALESCE(SUM(purchase_price), 0), COALESCE(SUM(current_value), 0)
		FROM assets WHERE %s = $1 GROUP BY status`, scope.Column()), scope.Value())
	if err != nil {
		return st, wrap("asset stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		var purchase, current float64
		if err := rows.Scan(&status, &n, &purchase, &current); err != nil {
			return st, wrap("scan asset stats", err)
		}
		st.Total += n
		st.ByStatus[status] = n
		st.TotalPurchaseValue += purchase
		st.TotalCurrentValue += current
	}
	if err := rows.Err(); err != nil {
		return st, wrap("asset stats", err)
	}

	err = s.q(ctx).QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM asset_assignments WHERE %s = $1 AND returned_at IS NULL", scope.Column()),
		scope.Value()).Scan(&st.ActiveAssignments)
	return st, wrap("count assignments", err)
}
