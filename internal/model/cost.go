package model

import "math"

// CostTotals summarizes recurring spend normalized to calendar periods, in
// the smallest currency unit.
type CostTotals struct {
	Monthly int64 `json:"monthly"`
	Yearly  int64 `json:"yearly"`
}

// MonthlyEquivalent converts the subscription's per-cycle amount to a monthly
// figure. Weeks average 52/12 per month and days 30; yearly charges spread
// evenly across 12 months. Unknown frequencies count as zero.
func (s Subscription) MonthlyEquivalent() float64 {
	amount := float64(s.Amount)
	switch s.Frequency {
	case FrequencyDaily:
		return amount * 30
	case FrequencyWeekly:
		return amount * 52 / 12
	case FrequencyMonthly:
		return amount
	case FrequencyYearly:
		return amount / 12
	default:
		return 0
	}
}

// SubscriptionCostTotals sums monthly equivalents across active
// subscriptions. The monthly total is rounded once, and the yearly total is
// twelve times the rounded monthly figure so the two never disagree.
func SubscriptionCostTotals(subs []Subscription) CostTotals {
	var monthly float64
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		monthly += s.MonthlyEquivalent()
	}
	rounded := int64(math.Round(monthly))
	return CostTotals{Monthly: rounded, Yearly: rounded * 12}
}
