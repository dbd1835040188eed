package api

import (
	"context"
	"fmt"

	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

// TransactionService binds transaction operations to their endpoints.
type TransactionService struct {
	client *Client
}

// NewTransactionService creates the transaction endpoint bindings.
func NewTransactionService(client *Client) *TransactionService {
	return &TransactionService{client: client}
}

// List fetches transactions matching the filter, together with the
// server-reported total across all pages.
func (s *TransactionService) List(ctx context.Context, filter model.TransactionFilter) (model.TransactionPage, error) {
	transactions, count, err := GetWithCount[[]model.Transaction](ctx, s.client, "/transactions", filter.Query())
	if err != nil {
		return model.TransactionPage{}, err
	}
	return model.TransactionPage{Transactions: transactions, Count: count}, nil
}

// Get fetches one transaction by ID.
func (s *TransactionService) Get(ctx context.Context, id int64) (model.Transaction, error) {
	return Get[model.Transaction](ctx, s.client, fmt.Sprintf("/transactions/%d", id), nil)
}

// Create records a new transaction and returns the server-assigned record.
func (s *TransactionService) Create(ctx context.Context, payload model.TransactionCreate) (model.Transaction, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Transaction{}, err
	}
	return Post[model.Transaction](ctx, s.client, "/transactions/create", payload)
}

// Update applies a partial update and returns the updated record.
func (s *TransactionService) Update(ctx context.Context, id int64, payload model.TransactionUpdate) (model.Transaction, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Transaction{}, err
	}
	return Put[model.Transaction](ctx, s.client, fmt.Sprintf("/transactions/%d/update", id), payload)
}

// Delete removes a transaction.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	_, err := Delete[struct{}](ctx, s.client, fmt.Sprintf("/transactions/%d/delete", id))
	return err
}
