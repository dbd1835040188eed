package model

import (
	"net/url"
	"strconv"
	"time"
)

// Transaction represents a single dated money movement.
//
// Amount is in the smallest currency unit. CategoryID and RecurringID are
// server-enforced foreign keys; either may dangle after an unrelated delete.
type Transaction struct {
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Description     *string   `json:"description"`
	CategoryID      *int64    `json:"categoryId" validate:"omitempty,gt=0"`
	PaymentMethod   *string   `json:"paymentMethod"`
	ReceiptURL      *string   `json:"receiptUrl"`
	RecurringID     *int64    `json:"recurringId" validate:"omitempty,gt=0"`
	Type            FlowType  `json:"type" validate:"required,oneof=income expense"`
	TransactionDate Date      `json:"transactionDate" validate:"required,datetime=2006-01-02"`
	Tags            Tags      `json:"tags"`
	ID              int64     `json:"id" validate:"required,gt=0"`
	Amount          int64     `json:"amount" validate:"required,gt=0"`
	IsRecurring     bool      `json:"isRecurring"`
}

// Clone returns a deep copy sharing no memory with the original.
func (t Transaction) Clone() Transaction {
	out := t
	out.Description = clonePtr(t.Description)
	out.CategoryID = clonePtr(t.CategoryID)
	out.PaymentMethod = clonePtr(t.PaymentMethod)
	out.ReceiptURL = clonePtr(t.ReceiptURL)
	out.RecurringID = clonePtr(t.RecurringID)
	out.Tags = t.Tags.Clone()
	return out
}

// TransactionCreate is the payload for recording a transaction.
type TransactionCreate struct {
	Description     *string  `json:"description,omitempty"`
	CategoryID      *int64   `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod   *string  `json:"paymentMethod,omitempty"`
	ReceiptURL      *string  `json:"receiptUrl,omitempty"`
	Type            FlowType `json:"type" validate:"required,oneof=income expense"`
	TransactionDate Date     `json:"transactionDate" validate:"required,datetime=2006-01-02"`
	Tags            Tags     `json:"tags,omitempty"`
	Amount          int64    `json:"amount" validate:"required,gt=0"`
}

// TransactionUpdate is the payload for updating a transaction. Nil fields are
// left unchanged.
type TransactionUpdate struct {
	Amount          *int64    `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Type            *FlowType `json:"type,omitempty" validate:"omitempty,oneof=income expense"`
	CategoryID      *int64    `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Description     *string   `json:"description,omitempty"`
	TransactionDate *Date     `json:"transactionDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod   *string   `json:"paymentMethod,omitempty"`
	ReceiptURL      *string   `json:"receiptUrl,omitempty"`
	Tags            Tags      `json:"tags,omitempty"`
}

// ApplyTo returns a copy of t with the update's non-nil fields applied. Used
// for optimistic cache rewrites ahead of server confirmation.
func (u TransactionUpdate) ApplyTo(t Transaction) Transaction {
	out := t.Clone()
	if u.Amount != nil {
		out.Amount = *u.Amount
	}
	if u.Type != nil {
		out.Type = *u.Type
	}
	if u.CategoryID != nil {
		out.CategoryID = clonePtr(u.CategoryID)
	}
	if u.Description != nil {
		out.Description = clonePtr(u.Description)
	}
	if u.TransactionDate != nil {
		out.TransactionDate = *u.TransactionDate
	}
	if u.PaymentMethod != nil {
		out.PaymentMethod = clonePtr(u.PaymentMethod)
	}
	if u.ReceiptURL != nil {
		out.ReceiptURL = clonePtr(u.ReceiptURL)
	}
	if u.Tags != nil {
		out.Tags = u.Tags.Clone()
	}
	return out
}

// TransactionSort names the server-supported sort columns.
type TransactionSort string

// Sort column constants.
const (
	SortByDate      TransactionSort = "transactionDate"
	SortByAmount    TransactionSort = "amount"
	SortByCreatedAt TransactionSort = "createdAt"
)

// TransactionFilter narrows a transaction list query. The zero value selects
// everything.
type TransactionFilter struct {
	From       Date
	To         Date
	Type       FlowType
	Search     string
	SortBy     TransactionSort
	SortOrder  string
	CategoryID int64
	Page       int
	Limit      int
}

// Query encodes the filter as the server's query parameters. Unset fields are
// omitted, so equal filters always encode identically.
func (f TransactionFilter) Query() url.Values {
	v := url.Values{}
	if !f.From.IsZero() {
		v.Set("from", string(f.From))
	}
	if !f.To.IsZero() {
		v.Set("to", string(f.To))
	}
	if f.Type != "" {
		v.Set("type", string(f.Type))
	}
	if f.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.SortBy != "" {
		v.Set("sort_by", string(f.SortBy))
	}
	if f.SortOrder != "" {
		v.Set("sort_order", f.SortOrder)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// TransactionPage is a cached transaction list alongside its server-reported
// total. Count tracks the full result size even when Transactions holds a
// single page.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Count        int           `json:"count"`
}

// Clone returns a deep copy of the page.
func (p TransactionPage) Clone() TransactionPage {
	return TransactionPage{
		Transactions: CloneAll(p.Transactions),
		Count:        p.Count,
	}
}
