package models

import "time"

// Ticket statuses
const (
	StatusOpen          = "open"
	StatusInProgress    = "in_progress"
	StatusOnHold        = "on_hold"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
	StatusClosed        = "closed"
)

// Priorities shared by tickets and problems
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket represents a helpdesk ticket with its lookup relations denormalized
type Ticket struct {
	ID             int64      `json:"id"`
	TicketNumber   string     `json:"ticket_number"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	RequesterID    *int64     `json:"requester_id,omitempty"`
	AssigneeID     *int64     `json:"assignee_id,omitempty"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	OrganisationID *int64     `json:"organisation_id,omitempty"`
	TenantID       int64      `json:"tenant_id"`
	SLADueDate     *time.Time `json:"sla_due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`

	CategoryName   *string `json:"category_name,omitempty"`
	AssigneeName   *string `json:"assignee_name,omitempty"`
	RequesterName  *string `json:"requester_name,omitempty"`
	RequesterEmail *string `json:"requester_email,omitempty"`

	// SLADaysLeft is derived at read time from SLADueDate
	SLADaysLeft *int `json:"sla_days_left,omitempty"`
}

// IsOpen reports whether the ticket still counts against its SLA
func (t *Ticket) IsOpen() bool {
	return t.Status != StatusResolved && t.Status != StatusClosed
}

// CreateTicketRequest represents the request body for opening a ticket
type CreateTicketRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description *string    `json:"description,omitempty"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	SLADueDate  *time.Time `json:"sla_due_date,omitempty"`
}

// UpdateTicketRequest represents a partial ticket update
type UpdateTicketRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=open in_progress on_hold resolved closed"`
	Priority    *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	Unassign    bool       `json:"unassign,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	SLADueDate  *time.Time `json:"sla_due_date,omitempty"`
}

// TicketComment is an entry on the ticket's conversation tab
type TicketComment struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	UserID     int64     `json:"user_id"`
	Comment    string    `json:"comment"`
	IsInternal bool      `json:"is_internal"`
	TenantID   int64     `json:"tenant_id"`
	CreatedAt  time.Time `json:"created_at"`
	UserName   *string   `json:"user_name,omitempty"`
	UserEmail  *string   `json:"user_email,omitempty"`
}

// CreateCommentRequest represents the request body for adding a comment
type CreateCommentRequest struct {
	Comment    string `json:"comment" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// TicketHistory records a single field change on a ticket
type TicketHistory struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	FieldName string    `json:"field_name"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UserName  *string   `json:"user_name,omitempty"`
}

// TicketAttachment is file metadata; the blob itself lives in external storage
type TicketAttachment struct {
	ID             int64     `json:"id"`
	TicketID       int64     `json:"ticket_id"`
	FileName       string    `json:"file_name"`
	FileURL        string    `json:"file_url"`
	FileSize       *int64    `json:"file_size,omitempty"`
	UploadedBy     *int64    `json:"uploaded_by,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
	UploadedByName *string   `json:"uploaded_by_name,omitempty"`
}

// LinkedProblem is a problem attached to a ticket through helpdesk_problem_tickets
type LinkedProblem struct {
	ID            int64     `json:"id"`
	ProblemID     int64     `json:"problem_id"`
	TicketID      int64     `json:"ticket_id"`
	CreatedAt     time.Time `json:"created_at"`
	ProblemNumber string    `json:"problem_number"`
	ProblemTitle  string    `json:"problem_title"`
	ProblemStatus string    `json:"problem_status"`
}

// LinkProblemRequest represents the request body for linking a problem to a ticket
type LinkProblemRequest struct {
	ProblemID int64 `json:"problem_id" validate:"required,gt=0"`
}

// TicketDetail bundles a ticket with every detail tab
type TicketDetail struct {
	Ticket      Ticket             `json:"ticket"`
	Comments    []TicketComment    `json:"comments"`
	History     []TicketHistory    `json:"history"`
	Attachments []TicketAttachment `json:"attachments"`
	Problems    []LinkedProblem    `json:"problems"`
}

// HelpdeskStats summarises the scoped ticket queue
type HelpdeskStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Open       int            `json:"open"`
	SLAOverdue int            `json:"sla_overdue"`
	SLADueSoon int            `json:"sla_due_soon"`
	Problems   int            `json:"problems"`
}

// TransitionStamps returns the timestamps a status change must write.
// A stamp is produced only when the status moves into resolved or closed from a
// different status; reverting never clears an earlier stamp.
func TransitionStamps(prev, next string, now time.Time) (resolvedAt, closedAt *time.Time) {
	if prev == next {
		return nil, nil
	}
	switch next {
	case StatusResolved:
		resolvedAt = &now
	case StatusClosed:
		closedAt = &now
	}
	return resolvedAt, closedAt
}
