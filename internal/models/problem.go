package models

import (
	"time"

	"github.com/lib/pq"
)

// Problem represents a recurring-issue record that groups related tickets
type Problem struct {
	ID              int64         `json:"id"`
	ProblemNumber   string        `json:"problem_number"`
	Title           string        `json:"title"`
	Description     *string       `json:"description,omitempty"`
	Status          string        `json:"status"`
	Priority        string        `json:"priority"`
	CategoryID      *int64        `json:"category_id,omitempty"`
	AssigneeID      *int64        `json:"assignee_id,omitempty"`
	RootCause       *string       `json:"root_cause,omitempty"`
	Workaround      *string       `json:"workaround,omitempty"`
	Solution        *string       `json:"solution,omitempty"`
	CreatedBy       *int64        `json:"created_by,omitempty"`
	OrganisationID  *int64        `json:"organisation_id,omitempty"`
	TenantID        int64         `json:"tenant_id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time    `json:"closed_at,omitempty"`
	LinkedTicketIDs pq.Int64Array `json:"linked_ticket_ids"`

	CategoryName  *string `json:"category_name,omitempty"`
	AssigneeName  *string `json:"assignee_name,omitempty"`
	CreatedByName *string `json:"created_by_name,omitempty"`
}

// CreateProblemRequest represents the request body for creating a problem record
type CreateProblemRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	AssigneeID  *int64  `json:"assignee_id,omitempty"`
	RootCause   *string `json:"root_cause,omitempty"`
	Workaround  *string `json:"workaround,omitempty"`
}

// UpdateProblemRequest represents a partial problem update
type UpdateProblemRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=open investigating in_progress resolved closed"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	AssigneeID  *int64  `json:"assignee_id,omitempty"`
	RootCause   *string `json:"root_cause,omitempty"`
	Workaround  *string `json:"workaround,omitempty"`
	Solution    *string `json:"solution,omitempty"`
}
