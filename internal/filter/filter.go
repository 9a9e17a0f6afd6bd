// Package filter narrows already-fetched ticket and problem lists in memory.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"helpdesk-api/internal/models"
)

// Unassigned is the assignee value that matches records with no assignee
const Unassigned = "unassigned"

const dateOnly = "2006-01-02"

// Criteria is an immutable set of ANDed predicates. Zero-valued fields do not filter.
type Criteria struct {
	Status   string
	Priority string
	Category string // category id
	Assignee string // assignee id or Unassigned
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// IsZero reports whether c filters nothing
func (c Criteria) IsZero() bool {
	return c.Status == "" && c.Priority == "" && c.Category == "" && c.Assignee == "" &&
		c.Search == "" && c.DateFrom == nil && c.DateTo == nil
}

// FromQuery reads criteria from list query parameters. A date-only date_to covers the
// whole day.
func FromQuery(v url.Values) (Criteria, error) {
	c := Criteria{
		Status:   strings.TrimSpace(v.Get("status")),
		Priority: strings.TrimSpace(v.Get("priority")),
		Category: strings.TrimSpace(v.Get("category")),
		Assignee: strings.TrimSpace(v.Get("assignee")),
		Search:   strings.TrimSpace(v.Get("search")),
	}
	if c.Search == "" {
		c.Search = strings.TrimSpace(v.Get("q"))
	}
	if s := strings.TrimSpace(v.Get("date_from")); s != "" {
		from, _, err := parseDate(s)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid date_from: %w", err)
		}
		c.DateFrom = &from
	}
	if s := strings.TrimSpace(v.Get("date_to")); s != "" {
		to, whole, err := parseDate(s)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid date_to: %w", err)
		}
		if whole {
			to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		c.DateTo = &to
	}
	return c, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}

// view is the subset of a record the predicates look at
type view struct {
	status   string
	priority string
	category *int64
	assignee *int64
	text     []*string
	created  time.Time
}

func (c Criteria) match(r view) bool {
	if c.Status != "" && r.status != c.Status {
		return false
	}
	if c.Priority != "" && r.priority != c.Priority {
		return false
	}
	if c.Category != "" && (r.category == nil || strconv.FormatInt(*r.category, 10) != c.Category) {
		return false
	}
	switch {
	case c.Assignee == Unassigned:
		if r.assignee != nil {
			return false
		}
	case c.Assignee != "":
		if r.assignee == nil || strconv.FormatInt(*r.assignee, 10) != c.Assignee {
			return false
		}
	}
	if c.Search != "" && !containsFold(r.text, c.Search) {
		return false
	}
	if c.DateFrom != nil && r.created.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && r.created.After(*c.DateTo) {
		return false
	}
	return true
}

func containsFold(fields []*string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if f != nil && strings.Contains(strings.ToLower(*f), needle) {
			return true
		}
	}
	return false
}

func apply[T any](in []T, c Criteria, see func(*T) view) []T {
	out := make([]T, 0, len(in))
	for i := range in {
		if c.match(see(&in[i])) {
			out = append(out, in[i])
		}
	}
	return out
}

// Tickets returns the tickets matching c, preserving order
func Tickets(in []models.Ticket, c Criteria) []models.Ticket {
	return apply(in, c, func(t *models.Ticket) view {
		return view{
			status:   t.Status,
			priority: t.Priority,
			category: t.CategoryID,
			assignee: t.AssigneeID,
			text:     []*string{&t.Title, t.Description, &t.TicketNumber},
			created:  t.CreatedAt,
		}
	})
}

// Problems returns the problems matching c, preserving order
func Problems(in []models.Problem, c Criteria) []models.Problem {
	return apply(in, c, func(p *models.Problem) view {
		return view{
			status:   p.Status,
			priority: p.Priority,
			category: p.CategoryID,
			assignee: p.AssigneeID,
			text:     []*string{&p.Title, p.Description, &p.ProblemNumber},
			created:  p.CreatedAt,
		}
	})
}
