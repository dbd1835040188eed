// Package model defines the core domain models used throughout the application.
//
// All entities are server-owned; the client holds cached copies with a finite
// lifetime. Foreign keys (Transaction.CategoryID, Transaction.RecurringID,
// Subscription.CategoryID) are enforced server-side only; a dangling
// reference means "unknown", never an error.
package model

// EntityType identifies one of the synchronized resource collections.
type EntityType string

const (
	// EntityCategories is the category collection.
	EntityCategories EntityType = "categories"
	// EntitySubscriptions is the subscription collection.
	EntitySubscriptions EntityType = "subscriptions"
	// EntityTransactions is the transaction collection.
	EntityTransactions EntityType = "transactions"
)

// FlowType indicates whether money flows in or out.
type FlowType string

const (
	// FlowIncome marks incoming money.
	FlowIncome FlowType = "income"
	// FlowExpense marks outgoing money.
	FlowExpense FlowType = "expense"
)

// Frequency is a subscription's billing cadence.
type Frequency string

// Billing cadence constants.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// CloneAll deep-copies a slice of cloneable entities.
func CloneAll[T interface{ Clone() T }](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

// clonePtr copies a pointer field so the clone shares no memory with the
// original.
func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
