package model

import "time"

// Subscription represents a recurring charge such as rent or a streaming
// service. Amount is the per-billing-cycle charge in the smallest currency
// unit; cost summaries normalize it by Frequency. When AutoGenerate is set
// the server creates Transactions from the subscription on its own schedule.
type Subscription struct {
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	CategoryID      *int64    `json:"categoryId" validate:"omitempty,gt=0"`
	Description     *string   `json:"description"`
	Name            string    `json:"name" validate:"required"`
	Frequency       Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	NextPaymentDate Date      `json:"nextPaymentDate" validate:"required,datetime=2006-01-02"`
	ID              int64     `json:"id" validate:"required,gt=0"`
	Amount          int64     `json:"amount" validate:"required,gt=0"`
	IsActive        bool      `json:"isActive"`
	AutoGenerate    bool      `json:"autoGenerate"`
}

// Clone returns a deep copy sharing no memory with the original.
func (s Subscription) Clone() Subscription {
	out := s
	out.CategoryID = clonePtr(s.CategoryID)
	out.Description = clonePtr(s.Description)
	return out
}

// SubscriptionCreate is the payload for registering a subscription.
type SubscriptionCreate struct {
	CategoryID      *int64    `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Description     *string   `json:"description,omitempty"`
	IsActive        *bool     `json:"isActive,omitempty"`
	AutoGenerate    *bool     `json:"autoGenerate,omitempty"`
	Name            string    `json:"name" validate:"required"`
	Frequency       Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	NextPaymentDate Date      `json:"nextPaymentDate" validate:"required,datetime=2006-01-02"`
	Amount          int64     `json:"amount" validate:"required,gt=0"`
}

// SubscriptionUpdate is the payload for updating a subscription. Nil fields
// are left unchanged. Activation state changes go through the dedicated
// activate and deactivate calls rather than this payload.
type SubscriptionUpdate struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,min=1"`
	Amount          *int64     `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Frequency       *Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly yearly"`
	CategoryID      *int64     `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Description     *string    `json:"description,omitempty"`
	NextPaymentDate *Date      `json:"nextPaymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AutoGenerate    *bool      `json:"autoGenerate,omitempty"`
}

// ApplyTo returns a copy of s with the update's non-nil fields applied.
func (u SubscriptionUpdate) ApplyTo(s Subscription) Subscription {
	out := s.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Amount != nil {
		out.Amount = *u.Amount
	}
	if u.Frequency != nil {
		out.Frequency = *u.Frequency
	}
	if u.CategoryID != nil {
		out.CategoryID = clonePtr(u.CategoryID)
	}
	if u.Description != nil {
		out.Description = clonePtr(u.Description)
	}
	if u.NextPaymentDate != nil {
		out.NextPaymentDate = *u.NextPaymentDate
	}
	if u.AutoGenerate != nil {
		out.AutoGenerate = *u.AutoGenerate
	}
	return out
}
