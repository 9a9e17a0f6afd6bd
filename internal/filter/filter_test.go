package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-api/internal/models"
)

func id(v int64) *int64 { return &v }
func str(s string) *string { return &s }

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleTickets() []models.Ticket {
	return []models.Ticket{
		{ID: 1, TicketNumber: "TKT-000001", Title: "Login issue", Status: "open", Priority: "urgent", AssigneeID: id(10), CategoryID: id(2), CreatedAt: at("2025-01-05T10:00:00Z")},
		{ID: 2, TicketNumber: "TKT-000002", Title: "Password reset", Status: "open", Priority: "low", CreatedAt: at("2025-01-06T23:59:00Z")},
		{ID: 3, TicketNumber: "TKT-000003", Title: "VPN drops", Description: str("cannot LOGIN after reconnect"), Status: "resolved", Priority: "urgent", AssigneeID: id(11), CategoryID: id(2), CreatedAt: at("2025-01-07T08:00:00Z")},
		{ID: 4, TicketNumber: "TKT-000004", Title: "Printer jam", Status: "in_progress", Priority: "urgent", CategoryID: id(3), CreatedAt: at("2025-01-08T08:00:00Z")},
	}
}

func ids(ts []models.Ticket) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestSearchTitles(t *testing.T) {
	in := []models.Ticket{{ID: 1, Title: "Login issue"}, {ID: 2, Title: "Password reset"}}
	got := Tickets(in, Criteria{Search: "login"})
	assert.Equal(t, []int64{1}, ids(got))
}

func TestSearchCoversDescriptionAndNumber(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, ids(Tickets(sampleTickets(), Criteria{Search: "LoGiN"})))
	assert.Equal(t, []int64{4}, ids(Tickets(sampleTickets(), Criteria{Search: "tkt-000004"})))
}

func TestEmptyCriteriaKeepsEverything(t *testing.T) {
	in := sampleTickets()
	assert.True(t, Criteria{}.IsZero())
	assert.Equal(t, ids(in), ids(Tickets(in, Criteria{})))
}

func TestPredicatesCommute(t *testing.T) {
	in := sampleTickets()
	statusThenPriority := Tickets(Tickets(in, Criteria{Status: "open"}), Criteria{Priority: "urgent"})
	priorityThenStatus := Tickets(Tickets(in, Criteria{Priority: "urgent"}), Criteria{Status: "open"})
	both := Tickets(in, Criteria{Status: "open", Priority: "urgent"})

	assert.Equal(t, ids(both), ids(statusThenPriority))
	assert.Equal(t, ids(both), ids(priorityThenStatus))
	assert.Equal(t, []int64{1}, ids(both))
}

func TestAssignee(t *testing.T) {
	in := sampleTickets()
	assert.Equal(t, []int64{2, 4}, ids(Tickets(in, Criteria{Assignee: Unassigned})))
	assert.Equal(t, []int64{3}, ids(Tickets(in, Criteria{Assignee: "11"})))
	assert.Empty(t, Tickets(in, Criteria{Assignee: "99"}))
}

func TestCategory(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, ids(Tickets(sampleTickets(), Criteria{Category: "2"})))
}

func TestDateRangeInclusive(t *testing.T) {
	c, err := FromQuery(url.Values{"date_from": {"2025-01-06"}, "date_to": {"2025-01-07"}})
	require.NoError(t, err)

	got := Tickets(sampleTickets(), c)
	assert.Equal(t, []int64{2, 3}, ids(got), "date_to covers the whole day")
}

func TestFromQuery(t *testing.T) {
	c, err := FromQuery(url.Values{
		"status":   {" open "},
		"priority": {"high"},
		"assignee": {"unassigned"},
		"q":        {"vpn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "open", c.Status)
	assert.Equal(t, "high", c.Priority)
	assert.Equal(t, Unassigned, c.Assignee)
	assert.Equal(t, "vpn", c.Search)
	assert.Nil(t, c.DateFrom)

	c, err = FromQuery(url.Values{"date_to": {"2025-01-07T08:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, at("2025-01-07T08:00:00Z"), *c.DateTo)

	_, err = FromQuery(url.Values{"date_from": {"yesterday"}})
	assert.Error(t, err)
}

func TestProblems(t *testing.T) {
	in := []models.Problem{
		{ID: 1, ProblemNumber: "PRB-000001", Title: "Recurring SSO outage", Status: "investigating", Priority: "high", CreatedAt: at("2025-02-01T00:00:00Z")},
		{ID: 2, ProblemNumber: "PRB-000002", Title: "Disk alerts", Status: "open", Priority: "high", AssigneeID: id(4), CreatedAt: at("2025-02-02T00:00:00Z")},
	}
	got := Problems(in, Criteria{Priority: "high", Assignee: Unassigned})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got = Problems(in, Criteria{Search: "prb-000002"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestInputNotMutated(t *testing.T) {
	in := sampleTickets()
	before := ids(in)
	_ = Tickets(in, Criteria{Status: "resolved"})
	assert.Equal(t, before, ids(in))
}
