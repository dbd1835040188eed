package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Transactions returns one filtered page of transactions. Each distinct
// filter gets its own cache slot; equal filters share one regardless of how
// they were assembled.
func (s *Service) Transactions(ctx context.Context, filter model.TransactionFilter) (model.TransactionPage, error) {
	return s.transactionPage(ctx, filter, false)
}

func (s *Service) transactionPage(ctx context.Context, filter model.TransactionFilter, force bool) (model.TransactionPage, error) {
	key := query.ListKeyWithParams(model.EntityTransactions, filter.Query())
	fetch := func(ctx context.Context) (model.TransactionPage, error) {
		return s.transactions.List(ctx, filter)
	}
	if force {
		return query.Refresh(ctx, s.queries, key, fetch)
	}
	return query.Run(ctx, s.queries, key, fetch)
}

// Transaction returns one transaction by ID. Non-positive IDs are rejected
// locally without touching the network.
func (s *Service) Transaction(ctx context.Context, id int64) (model.Transaction, error) {
	if id <= 0 {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, common.ErrInvalidID)
	}
	return query.Run(ctx, s.queries, query.DetailKey(model.EntityTransactions, id),
		func(ctx context.Context) (model.Transaction, error) {
			return s.transactions.Get(ctx, id)
		})
}

// CreateTransaction records a new transaction and invalidates cached
// transaction pages once the create settles.
func (s *Service) CreateTransaction(ctx context.Context, payload model.TransactionCreate) (model.Transaction, error) {
	return query.RunMutation(ctx, s.queries, query.Mutation[model.Transaction]{
		Call: func(ctx context.Context) (model.Transaction, error) {
			return s.transactions.Create(ctx, payload)
		},
		Invalidate: invalidationScope(model.EntityTransactions),
	})
}

// UpdateTransaction applies a partial update, optimistically rewriting the
// record in every cached page and in the detail slot.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, patch model.TransactionUpdate) (model.Transaction, error) {
	if id <= 0 {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntityTransactions, id)
	lists := s.cachedListKeys(model.EntityTransactions)

	return query.RunMutation(ctx, s.queries, query.Mutation[model.Transaction]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(page model.TransactionPage) model.TransactionPage {
				out := page.Clone()
				for i := range out.Transactions {
					if out.Transactions[i].ID == id {
						out.Transactions[i] = patch.ApplyTo(out.Transactions[i])
					}
				}
				return out
			})
			rewriteSlots(store, []query.Key{detail}, patch.ApplyTo)
		},
		Call: func(ctx context.Context) (model.Transaction, error) {
			return s.transactions.Update(ctx, id, patch)
		},
		Invalidate: invalidationScope(model.EntityTransactions),
	})
}

// DeleteTransaction removes a transaction. Every cached page containing the
// record drops it and decrements its count immediately; a failed call
// restores all touched pages exactly.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntityTransactions, id)
	lists := s.cachedListKeys(model.EntityTransactions)

	_, err := query.RunMutation(ctx, s.queries, query.Mutation[struct{}]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(page model.TransactionPage) model.TransactionPage {
				kept := make([]model.Transaction, 0, len(page.Transactions))
				removed := 0
				for _, tx := range page.Transactions {
					if tx.ID == id {
						removed++
						continue
					}
					kept = append(kept, tx.Clone())
				}
				return model.TransactionPage{Transactions: kept, Count: page.Count - removed}
			})
			store.Delete(detail)
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.transactions.Delete(ctx, id)
		},
		Invalidate: invalidationScope(model.EntityTransactions),
	})
	return err
}

// CurrentMonthTransactions returns this calendar month's transactions,
// newest first.
func (s *Service) CurrentMonthTransactions(ctx context.Context) (model.TransactionPage, error) {
	return s.Transactions(ctx, currentMonthFilter())
}

func currentMonthFilter() model.TransactionFilter {
	from, to := model.MonthWindow(time.Now())
	return model.TransactionFilter{
		From:      from,
		To:        to,
		SortBy:    model.SortByDate,
		SortOrder: "desc",
	}
}

// FlowTotals sums a transaction set by direction.
func FlowTotals(transactions []model.Transaction) (income, expense int64) {
	for _, tx := range transactions {
		switch tx.Type {
		case model.FlowIncome:
			income += tx.Amount
		case model.FlowExpense:
			expense += tx.Amount
		}
	}
	return income, expense
}
