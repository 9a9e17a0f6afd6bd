// Package spend computes renewal countdowns and INR cost aggregates for subscription tools.
// Every function here is pure; callers supply the clock.
package spend

import (
	"math"
	"sort"
	"time"

	"helpdesk-api/internal/models"
)

// Renewal classes
const (
	ClassExpired  = "expired"
	ClassCritical = "critical"
	ClassUpcoming = "upcoming"
	ClassNone     = ""
)

const (
	// RenewalWindowDays is how far ahead the upcoming renewals panel looks
	RenewalWindowDays = 30
	// ExpiringWindowDays is how far ahead the expiring soon panel looks
	ExpiringWindowDays = 7
)

// DaysUntil returns the whole days from now until date, rounded up
func DaysUntil(date, now time.Time) int {
	return int(math.Ceil(date.Sub(now).Hours() / 24))
}

// Classify buckets a day count: <=0 expired, 1-7 critical, 8-30 upcoming
func Classify(days int) string {
	switch {
	case days <= 0:
		return ClassExpired
	case days <= ExpiringWindowDays:
		return ClassCritical
	case days <= RenewalWindowDays:
		return ClassUpcoming
	default:
		return ClassNone
	}
}

// Countdown returns the day count and class for an optional date
func Countdown(date *time.Time, now time.Time) (*int, string) {
	if date == nil {
		return nil, ClassNone
	}
	d := DaysUntil(*date, now)
	return &d, Classify(d)
}

// ToolCost is the converted cost of one tool, counting at least one seat
func ToolCost(t models.Tool, conv *Converter) float64 {
	seats := t.LicenseCount
	if seats < 1 {
		seats = 1
	}
	return conv.ToINR(t.Cost*float64(seats), t.Currency)
}

// MonthlyBurnRate sums the converted cost of active tools
func MonthlyBurnRate(tools []models.Tool, conv *Converter) float64 {
	var total float64
	for _, t := range tools {
		if t.Status != models.ToolActive {
			continue
		}
		total += ToolCost(t, conv)
	}
	return total
}

// AnnualCost is twelve months of burn
func AnnualCost(monthly float64) float64 {
	return monthly * 12
}

// renewalsWithin returns active tools renewing in (0, window] days, soonest first
func renewalsWithin(tools []models.Tool, conv *Converter, now time.Time, window int) []models.RenewalItem {
	items := make([]models.RenewalItem, 0)
	for _, t := range tools {
		if t.Status != models.ToolActive || t.RenewalDate == nil {
			continue
		}
		days := DaysUntil(*t.RenewalDate, now)
		if days <= 0 || days > window {
			continue
		}
		vendor := "No vendor"
		if t.VendorName != nil && *t.VendorName != "" {
			vendor = *t.VendorName
		}
		items = append(items, models.RenewalItem{
			ToolID:           t.ID,
			ToolName:         t.ToolName,
			VendorName:       vendor,
			RenewalDate:      *t.RenewalDate,
			DaysUntilRenewal: days,
			CostINR:          ToolCost(t, conv),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysUntilRenewal < items[j].DaysUntilRenewal
	})
	return items
}

// UpcomingRenewals lists active tools renewing within the next 30 days
func UpcomingRenewals(tools []models.Tool, conv *Converter, now time.Time) []models.RenewalItem {
	return renewalsWithin(tools, conv, now, RenewalWindowDays)
}

// ExpiringSoon lists active tools renewing within the next 7 days
func ExpiringSoon(tools []models.Tool, conv *Converter, now time.Time) []models.RenewalItem {
	return renewalsWithin(tools, conv, now, ExpiringWindowDays)
}

// CostByType distributes active tool cost over billing types; empty types are omitted
func CostByType(tools []models.Tool, conv *Converter) []models.TypeCost {
	out := make([]models.TypeCost, 0, len(models.BillingTypes))
	for _, typ := range models.BillingTypes {
		tc := models.TypeCost{SubscriptionType: typ}
		for _, t := range tools {
			if t.Status != models.ToolActive || t.SubscriptionType != typ {
				continue
			}
			tc.Tools++
			tc.TotalINR += ToolCost(t, conv)
		}
		if tc.TotalINR == 0 {
			continue
		}
		out = append(out, tc)
	}
	return out
}

// PaymentsTotal sums payment amounts in INR; a missing currency is taken as INR
func PaymentsTotal(payments []models.Payment, conv *Converter) float64 {
	var total float64
	for _, p := range payments {
		total += PaymentINR(p, conv)
	}
	return total
}

// PaymentINR converts a single payment amount
func PaymentINR(p models.Payment, conv *Converter) float64 {
	code := BaseCurrency
	if p.Currency != nil && *p.Currency != "" {
		code = *p.Currency
	}
	return conv.ToINR(p.Amount, code)
}

// Dashboard assembles the subscription overview from the scoped tool list
func Dashboard(tools []models.Tool, conv *Converter, now time.Time) models.SubscriptionDashboard {
	d := models.SubscriptionDashboard{TotalTools: len(tools)}
	for _, t := range tools {
		switch t.Status {
		case models.ToolActive:
			d.ActiveTools++
		case models.ToolTrial:
			d.TrialTools++
		}
	}
	d.MonthlyBurnRate = MonthlyBurnRate(tools, conv)
	d.AnnualCost = AnnualCost(d.MonthlyBurnRate)
	d.MonthlyFormatted = FormatINR(d.MonthlyBurnRate)
	d.AnnualFormatted = FormatINR(d.AnnualCost)
	d.UpcomingRenewals = UpcomingRenewals(tools, conv, now)
	d.ExpiringSoon = ExpiringSoon(tools, conv, now)
	d.CostByType = CostByType(tools, conv)
	return d
}
