package models

import (
	"time"
)

// Asset statuses
const (
	AssetActive      = "active"
	AssetMaintenance = "maintenance"
	AssetRetired     = "retired"
	AssetDisposed    = "disposed"
)

// Asset represents a tracked IT asset
type Asset struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	AssetType          *string    `json:"asset_type,omitempty"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	Status             string     `json:"status"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	PurchasePrice      *float64   `json:"purchase_price,omitempty"`
	CurrentValue       *float64   `json:"current_value,omitempty"`
	DepreciationMethod *string    `json:"depreciation_method,omitempty"`
	UsefulLifeYears    *int       `json:"useful_life_years,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	OrganisationID     *int64     `json:"organisation_id,omitempty"`
	TenantID           int64      `json:"tenant_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreateAssetRequest represents the request body for creating a new asset
type CreateAssetRequest struct {
	Name               string     `json:"name" validate:"required,max=255"`
	AssetType          *string    `json:"asset_type,omitempty"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	Status             string     `json:"status" validate:"omitempty,oneof=active maintenance retired disposed"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	PurchasePrice      *float64   `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	CurrentValue       *float64   `json:"current_value,omitempty" validate:"omitempty,gte=0"`
	DepreciationMethod *string    `json:"depreciation_method,omitempty"`
	UsefulLifeYears    *int       `json:"useful_life_years,omitempty" validate:"omitempty,gte=0"`
	Notes              *string    `json:"notes,omitempty"`
}

// UpdateAssetRequest represents the request body for updating an asset
type UpdateAssetRequest struct {
	Name               *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	AssetType          *string    `json:"asset_type,omitempty"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	Status             *string    `json:"status,omitempty" validate:"omitempty,oneof=active maintenance retired disposed"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	PurchasePrice      *float64   `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	CurrentValue       *float64   `json:"current_value,omitempty" validate:"omitempty,gte=0"`
	DepreciationMethod *string    `json:"depreciation_method,omitempty"`
	UsefulLifeYears    *int       `json:"useful_life_years,omitempty" validate:"omitempty,gte=0"`
	Notes              *string    `json:"notes,omitempty"`
}

// AssetAssignment links an asset to a user; ReturnedAt == nil means still assigned
type AssetAssignment struct {
	ID                    int64      `json:"id"`
	AssetID               int64      `json:"asset_id"`
	AssignedTo            int64      `json:"assigned_to"`
	AssignedAt            time.Time  `json:"assigned_at"`
	ReturnedAt            *time.Time `json:"returned_at,omitempty"`
	ConditionAtAssignment *string    `json:"condition_at_assignment,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	OrganisationID        *int64     `json:"organisation_id,omitempty"`
	TenantID              int64      `json:"tenant_id"`

	AssetName *string `json:"asset_name,omitempty"`
	AssetType *string `json:"asset_type,omitempty"`
	UserName  *string `json:"user_name,omitempty"`
	UserEmail *string `json:"user_email,omitempty"`
}

// Active reports whether the asset is still out with the assignee
func (a *AssetAssignment) Active() bool {
	return a.ReturnedAt == nil
}

// AssignAssetRequest represents the request body for handing an asset to a user
type AssignAssetRequest struct {
	AssignedTo            int64   `json:"assigned_to" validate:"required,gt=0"`
	ConditionAtAssignment *string `json:"condition_at_assignment,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
}

// AssetStats summarises the scoped asset register
type AssetStats struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"by_status"`
	ActiveAssignments  int            `json:"active_assignments"`
	TotalPurchaseValue float64        `json:"total_purchase_value"`
	TotalCurrentValue  float64        `json:"total_current_value"`
}
