package models

import "time"

// Subscription tool statuses
const (
	ToolActive    = "active"
	ToolTrial     = "trial"
	ToolExpired   = "expired"
	ToolCancelled = "cancelled"
)

// Billing cycles a tool can be paid on
const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
	BillingPerUser = "per_user"
	BillingOneTime = "one_time"
)

// BillingTypes lists the billing cycles in display order
var BillingTypes = []string{BillingMonthly, BillingYearly, BillingPerUser, BillingOneTime}

// Tool is a paid SaaS subscription
type Tool struct {
	ID               int64      `json:"id"`
	ToolName         string     `json:"tool_name"`
	VendorID         *int64     `json:"vendor_id,omitempty"`
	Category         *string    `json:"category,omitempty"`
	Cost             float64    `json:"cost"`
	Currency         string     `json:"currency"`
	SubscriptionType string     `json:"subscription_type"`
	LicenseCount     int        `json:"license_count"`
	RenewalDate      *time.Time `json:"renewal_date,omitempty"`
	Status           string     `json:"status"`
	Notes            *string    `json:"notes,omitempty"`
	OrganisationID   *int64     `json:"organisation_id,omitempty"`
	TenantID         int64      `json:"tenant_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	VendorName *string `json:"vendor_name,omitempty"`

	DaysUntilRenewal *int   `json:"days_until_renewal,omitempty"`
	RenewalClass     string `json:"renewal_class,omitempty"`
}

// CreateToolRequest represents the request body for adding a subscription tool
type CreateToolRequest struct {
	ToolName         string     `json:"tool_name" validate:"required,max=255"`
	VendorID         *int64     `json:"vendor_id,omitempty"`
	Category         *string    `json:"category,omitempty"`
	Cost             float64    `json:"cost" validate:"gte=0"`
	Currency         string     `json:"currency" validate:"omitempty,len=3"`
	SubscriptionType string     `json:"subscription_type" validate:"omitempty,oneof=monthly yearly per_user one_time"`
	LicenseCount     int        `json:"license_count" validate:"gte=0"`
	RenewalDate      *time.Time `json:"renewal_date,omitempty"`
	Status           string     `json:"status" validate:"omitempty,oneof=active trial expired cancelled"`
	Notes            *string    `json:"notes,omitempty"`
}

// UpdateToolRequest represents a partial tool update
type UpdateToolRequest struct {
	ToolName         *string    `json:"tool_name,omitempty" validate:"omitempty,min=1,max=255"`
	VendorID         *int64     `json:"vendor_id,omitempty"`
	Category         *string    `json:"category,omitempty"`
	Cost             *float64   `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Currency         *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	SubscriptionType *string    `json:"subscription_type,omitempty" validate:"omitempty,oneof=monthly yearly per_user one_time"`
	LicenseCount     *int       `json:"license_count,omitempty" validate:"omitempty,gte=0"`
	RenewalDate      *time.Time `json:"renewal_date,omitempty"`
	Status           *string    `json:"status,omitempty" validate:"omitempty,oneof=active trial expired cancelled"`
	Notes            *string    `json:"notes,omitempty"`
}

// ToolFilter holds the server-side tool list filters
type ToolFilter struct {
	Search   string
	Status   string
	Category string
}

// License is a single seat or key of a subscription tool
type License struct {
	ID                 int64      `json:"id"`
	ToolID             int64      `json:"tool_id"`
	LicenseKey         *string    `json:"license_key,omitempty"`
	AssignedTo         *int64     `json:"assigned_to,omitempty"`
	AssignedToDeviceID *int64     `json:"assigned_to_device_id,omitempty"`
	AssignedDate       *time.Time `json:"assigned_date,omitempty"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes,omitempty"`
	OrganisationID     *int64     `json:"organisation_id,omitempty"`
	TenantID           int64      `json:"tenant_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	ToolName     *string `json:"tool_name,omitempty"`
	AssigneeName *string `json:"assignee_name,omitempty"`

	DaysUntilExpiry *int   `json:"days_until_expiry,omitempty"`
	ExpiryClass     string `json:"expiry_class,omitempty"`
}

// CreateLicenseRequest represents the request body for adding a license
type CreateLicenseRequest struct {
	ToolID             int64      `json:"tool_id" validate:"required,gt=0"`
	LicenseKey         *string    `json:"license_key,omitempty"`
	AssignedTo         *int64     `json:"assigned_to,omitempty"`
	AssignedToDeviceID *int64     `json:"assigned_to_device_id,omitempty"`
	AssignedDate       *time.Time `json:"assigned_date,omitempty"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	Status             string     `json:"status" validate:"omitempty,oneof=available assigned expired revoked"`
	Notes              *string    `json:"notes,omitempty"`
}

// UpdateLicenseRequest represents a partial license update
type UpdateLicenseRequest struct {
	LicenseKey         *string    `json:"license_key,omitempty"`
	AssignedTo         *int64     `json:"assigned_to,omitempty"`
	AssignedToDeviceID *int64     `json:"assigned_to_device_id,omitempty"`
	AssignedDate       *time.Time `json:"assigned_date,omitempty"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	Status             *string    `json:"status,omitempty" validate:"omitempty,oneof=available assigned expired revoked"`
	Notes              *string    `json:"notes,omitempty"`
}

// LicenseFilter holds the server-side license list filters
type LicenseFilter struct {
	Search string
	Status string
}

// Payment is an invoice paid against a subscription tool
type Payment struct {
	ID                 int64      `json:"id"`
	ToolID             int64      `json:"tool_id"`
	Amount             float64    `json:"amount"`
	Currency           *string    `json:"currency,omitempty"`
	PaymentDate        time.Time  `json:"payment_date"`
	BillingPeriodStart *time.Time `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time `json:"billing_period_end,omitempty"`
	PaymentMethod      *string    `json:"payment_method,omitempty"`
	InvoiceURL         *string    `json:"invoice_url,omitempty"`
	Status             string     `json:"status"`
	OrganisationID     *int64     `json:"organisation_id,omitempty"`
	TenantID           int64      `json:"tenant_id"`
	CreatedAt          time.Time  `json:"created_at"`

	ToolName *string `json:"tool_name,omitempty"`

	AmountINR float64 `json:"amount_inr"`
}

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	ToolID             int64      `json:"tool_id" validate:"required,gt=0"`
	Amount             float64    `json:"amount" validate:"gte=0"`
	Currency           *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentDate        time.Time  `json:"payment_date" validate:"required"`
	BillingPeriodStart *time.Time `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time `json:"billing_period_end,omitempty"`
	PaymentMethod      *string    `json:"payment_method,omitempty"`
	InvoiceURL         *string    `json:"invoice_url,omitempty" validate:"omitempty,url"`
	Status             string     `json:"status" validate:"omitempty,oneof=paid pending failed refunded"`
}

// UpdatePaymentRequest represents a partial payment update
type UpdatePaymentRequest struct {
	Amount             *float64   `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency           *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentDate        *time.Time `json:"payment_date,omitempty"`
	BillingPeriodStart *time.Time `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time `json:"billing_period_end,omitempty"`
	PaymentMethod      *string    `json:"payment_method,omitempty"`
	InvoiceURL         *string    `json:"invoice_url,omitempty" validate:"omitempty,url"`
	Status             *string    `json:"status,omitempty" validate:"omitempty,oneof=paid pending failed refunded"`
}

// PaymentList is a payments page with its converted total
type PaymentList struct {
	Payments       []Payment `json:"payments"`
	TotalINR       float64   `json:"total_inr"`
	TotalFormatted string    `json:"total_formatted"`
}

// Vendor is a supplier of one or more subscription tools
type Vendor struct {
	ID             int64     `json:"id"`
	VendorName     string    `json:"vendor_name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Website        *string   `json:"website,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	OrganisationID *int64    `json:"organisation_id,omitempty"`
	TenantID       int64     `json:"tenant_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	ToolCount int `json:"tool_count"`
}

// CreateVendorRequest represents the request body for creating a vendor
type CreateVendorRequest struct {
	VendorName string  `json:"vendor_name" validate:"required,max=255"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty"`
	Website    *string `json:"website,omitempty" validate:"omitempty,url"`
	Notes      *string `json:"notes,omitempty"`
}

// UpdateVendorRequest represents a partial vendor update
type UpdateVendorRequest struct {
	VendorName *string `json:"vendor_name,omitempty" validate:"omitempty,min=1,max=255"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty"`
	Website    *string `json:"website,omitempty" validate:"omitempty,url"`
	Notes      *string `json:"notes,omitempty"`
}

// RenewalItem is a tool counted by the dashboard renewal panels
type RenewalItem struct {
	ToolID           int64     `json:"tool_id"`
	ToolName         string    `json:"tool_name"`
	VendorName       string    `json:"vendor_name"`
	RenewalDate      time.Time `json:"renewal_date"`
	DaysUntilRenewal int       `json:"days_until_renewal"`
	CostINR          float64   `json:"cost_inr"`
}

// TypeCost is one slice of the cost-by-billing-type distribution
type TypeCost struct {
	SubscriptionType string  `json:"subscription_type"`
	Tools            int     `json:"tools"`
	TotalINR         float64 `json:"total_inr"`
}

// SubscriptionDashboard is the subscription overview screen
type SubscriptionDashboard struct {
	TotalTools       int           `json:"total_tools"`
	ActiveTools      int           `json:"active_tools"`
	TrialTools       int           `json:"trial_tools"`
	TotalLicenses    int           `json:"total_licenses"`
	AssignedLicenses int           `json:"assigned_licenses"`
	Vendors          int           `json:"vendors"`
	MonthlyBurnRate  float64       `json:"monthly_burn_rate"`
	AnnualCost       float64       `json:"annual_cost"`
	MonthlyFormatted string        `json:"monthly_formatted"`
	AnnualFormatted  string        `json:"annual_formatted"`
	UpcomingRenewals []RenewalItem `json:"upcoming_renewals"`
	ExpiringSoon     []RenewalItem `json:"expiring_soon"`
	CostByType       []TypeCost    `json:"cost_by_type"`
}
