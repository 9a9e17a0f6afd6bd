package spend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-api/internal/models"
)

var now = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := now.Add(time.Duration(offset) * 24 * time.Hour)
	return &d
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"same instant", now, 0},
		{"one hour ahead rounds up", now.Add(time.Hour), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"just over a day", now.Add(25 * time.Hour), 2},
		{"yesterday", now.Add(-24 * time.Hour), -1},
		{"a few hours ago", now.Add(-3 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.date, now))
		})
	}
}

func TestDaysUntilDecreasesAsTimeAdvances(t *testing.T) {
	renewal := now.Add(20 * 24 * time.Hour)
	prev := DaysUntil(renewal, now)
	for step := 1; step <= 25; step++ {
		later := now.Add(time.Duration(step) * 24 * time.Hour)
		d := DaysUntil(renewal, later)
		if d >= prev {
			t.Fatalf("step %d: days %d not below previous %d", step, d, prev)
		}
		prev = d
	}
}

func TestClassify(t *testing.T) {
	cases := map[int]string{
		-5: ClassExpired,
		0:  ClassExpired,
		1:  ClassCritical,
		7:  ClassCritical,
		8:  ClassUpcoming,
		30: ClassUpcoming,
		31: ClassNone,
	}
	for days, want := range cases {
		if got := Classify(days); got != want {
			t.Errorf("Classify(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestMonthlyBurnRate(t *testing.T) {
	conv := NewConverter(nil)

	t.Run("trial tool excluded", func(t *testing.T) {
		tools := []models.Tool{
			{Cost: 10, Currency: "USD", LicenseCount: 2, Status: models.ToolActive},
			{Cost: 5, Currency: "INR", Status: models.ToolTrial},
		}
		assert.InDelta(t, conv.ToINR(20, "USD"), MonthlyBurnRate(tools, conv), 1e-9)
	})

	t.Run("zero licenses count as one seat", func(t *testing.T) {
		tools := []models.Tool{{Cost: 100, Currency: "INR", LicenseCount: 0, Status: models.ToolActive}}
		assert.InDelta(t, 100, MonthlyBurnRate(tools, conv), 1e-9)
	})

	t.Run("only active contributes", func(t *testing.T) {
		var tools []models.Tool
		for _, st := range []string{models.ToolTrial, models.ToolExpired, models.ToolCancelled} {
			tools = append(tools, models.Tool{Cost: 50, Currency: "EUR", LicenseCount: 3, Status: st})
		}
		assert.Zero(t, MonthlyBurnRate(tools, conv))

		tools = append(tools, models.Tool{Cost: 2, Currency: "GBP", LicenseCount: 1, Status: models.ToolActive})
		assert.InDelta(t, conv.ToINR(2, "GBP"), MonthlyBurnRate(tools, conv), 1e-9)
	})

	t.Run("annual is twelve months", func(t *testing.T) {
		assert.InDelta(t, 1200, AnnualCost(100), 1e-9)
	})
}

func TestRenewalWindows(t *testing.T) {
	conv := NewConverter(nil)
	vendor := "Atlassian"
	tools := []models.Tool{
		{ID: 1, ToolName: "Past", Status: models.ToolActive, RenewalDate: day(-2), Currency: "INR"},
		{ID: 2, ToolName: "Today", Status: models.ToolActive, RenewalDate: &now, Currency: "INR"},
		{ID: 3, ToolName: "Week", Status: models.ToolActive, RenewalDate: day(7), Currency: "INR", VendorName: &vendor},
		{ID: 4, ToolName: "Soon", Status: models.ToolActive, RenewalDate: day(2), Currency: "INR"},
		{ID: 5, ToolName: "Month", Status: models.ToolActive, RenewalDate: day(30), Currency: "INR"},
		{ID: 6, ToolName: "Later", Status: models.ToolActive, RenewalDate: day(31), Currency: "INR"},
		{ID: 7, ToolName: "TrialSoon", Status: models.ToolTrial, RenewalDate: day(3), Currency: "INR"},
		{ID: 8, ToolName: "NoDate", Status: models.ToolActive, Currency: "INR"},
	}

	upcoming := UpcomingRenewals(tools, conv, now)
	ids := make([]int64, 0, len(upcoming))
	for _, r := range upcoming {
		ids = append(ids, r.ToolID)
	}
	assert.Equal(t, []int64{4, 3, 5}, ids, "sorted by days ascending")
	assert.Equal(t, "Atlassian", upcoming[1].VendorName)
	assert.Equal(t, "No vendor", upcoming[0].VendorName)

	expiring := ExpiringSoon(tools, conv, now)
	require.Len(t, expiring, 2)
	for _, r := range expiring {
		assert.True(t, r.DaysUntilRenewal > 0 && r.DaysUntilRenewal <= 7)
	}

	// a tool is expiring iff 0 < days <= 7
	in := map[int64]bool{}
	for _, r := range expiring {
		in[r.ToolID] = true
	}
	for _, tool := range tools {
		if tool.Status != models.ToolActive || tool.RenewalDate == nil {
			assert.False(t, in[tool.ID])
			continue
		}
		d := DaysUntil(*tool.RenewalDate, now)
		assert.Equal(t, d > 0 && d <= 7, in[tool.ID], "tool %s", tool.ToolName)
	}
}

func TestCostByType(t *testing.T) {
	conv := NewConverter(nil)
	tools := []models.Tool{
		{SubscriptionType: models.BillingMonthly, Cost: 10, Currency: "INR", Status: models.ToolActive},
		{SubscriptionType: models.BillingMonthly, Cost: 5, Currency: "INR", LicenseCount: 2, Status: models.ToolActive},
		{SubscriptionType: models.BillingYearly, Cost: 1, Currency: "USD", Status: models.ToolActive},
		{SubscriptionType: models.BillingPerUser, Cost: 99, Currency: "INR", Status: models.ToolCancelled},
	}

	got := CostByType(tools, conv)
	require.Len(t, got, 2)
	assert.Equal(t, models.TypeCost{SubscriptionType: "monthly", Tools: 2, TotalINR: 20}, got[0])
	assert.Equal(t, "yearly", got[1].SubscriptionType)
	assert.InDelta(t, 83, got[1].TotalINR, 1e-9)
}

func TestPaymentsTotal(t *testing.T) {
	conv := NewConverter(nil)
	usd := "USD"
	empty := ""
	payments := []models.Payment{
		{Amount: 100},
		{Amount: 2, Currency: &usd},
		{Amount: 50, Currency: &empty},
	}
	assert.InDelta(t, 100+166+50, PaymentsTotal(payments, conv), 1e-9)
}

func TestConverter(t *testing.T) {
	conv := NewConverter(map[string]float64{"usd": 84, "JPY": 0.55, "bad": -1})

	assert.Equal(t, 84.0, conv.Rate("USD"), "override is case-insensitive")
	assert.Equal(t, 0.55, conv.Rate("jpy"))
	assert.Equal(t, 1.0, conv.Rate("XYZ"), "unknown converts at 1")
	assert.Equal(t, 1.0, conv.Rate("BAD"), "non-positive rates are ignored")
	assert.Equal(t, 90.0, conv.Rate("EUR"), "defaults survive")
}

func TestParseRates(t *testing.T) {
	conv, err := ParseRates([]byte("base: INR\nrates:\n  USD: 82.5\n  CHF: 95\n"))
	require.NoError(t, err)
	assert.Equal(t, 82.5, conv.Rate("USD"))
	assert.Equal(t, 95.0, conv.Rate("CHF"))

	_, err = ParseRates([]byte("base: USD\nrates: {}\n"))
	assert.Error(t, err)

	_, err = ParseRates([]byte("rates: [unclosed"))
	assert.Error(t, err)

	def, err := LoadConverter("")
	require.NoError(t, err)
	assert.Equal(t, 83.0, def.Rate("USD"))
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0.00", FormatINR(0))
	assert.Equal(t, "₹999.50", FormatINR(999.5))
	assert.Equal(t, "₹12.35", FormatINR(12.345678))
}

func TestDashboard(t *testing.T) {
	conv := NewConverter(nil)
	tools := []models.Tool{
		{ID: 1, ToolName: "Slack", Cost: 10, Currency: "USD", LicenseCount: 2, Status: models.ToolActive, SubscriptionType: models.BillingPerUser, RenewalDate: day(5)},
		{ID: 2, ToolName: "Figma", Cost: 5, Currency: "INR", Status: models.ToolTrial, SubscriptionType: models.BillingMonthly},
	}

	d := Dashboard(tools, conv, now)
	assert.Equal(t, 2, d.TotalTools)
	assert.Equal(t, 1, d.ActiveTools)
	assert.Equal(t, 1, d.TrialTools)
	assert.InDelta(t, 1660, d.MonthlyBurnRate, 1e-9)
	assert.InDelta(t, 19920, d.AnnualCost, 1e-9)
	assert.Len(t, d.UpcomingRenewals, 1)
	assert.Len(t, d.ExpiringSoon, 1)
	assert.Len(t, d.CostByType, 1)
}
