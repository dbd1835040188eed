package budget

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

// Dashboard is the composite month-at-a-glance view: this month's
// transactions, the active subscriptions with their normalized cost totals,
// and the active categories.
type Dashboard struct {
	Transactions  model.TransactionPage
	Subscriptions []model.Subscription
	Categories    []model.Category
	Costs         model.CostTotals
	From          model.Date
	To            model.Date
	Income        int64
	Expense       int64
}

// Net returns the month's income minus its expenses.
func (d Dashboard) Net() int64 {
	return d.Income - d.Expense
}

// Dashboard composes the constituent queries into one view. The constituents
// run concurrently and all of them finish even when one fails; a single
// error is surfaced in fixed priority order, transactions first, then
// subscriptions, then categories.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return s.dashboard(ctx, false)
}

// RefetchDashboard rebuilds the dashboard with every constituent forced
// fresh, bypassing cached values.
func (s *Service) RefetchDashboard(ctx context.Context) (Dashboard, error) {
	return s.dashboard(ctx, true)
}

func (s *Service) dashboard(ctx context.Context, force bool) (Dashboard, error) {
	filter := currentMonthFilter()

	var (
		page                  model.TransactionPage
		subs                  []model.Subscription
		cats                  []model.Category
		txErr, subErr, catErr error
	)

	// A plain group, not WithContext: one failing constituent must not
	// cancel the others, and the error surfaced below follows a fixed
	// priority rather than completion order.
	var g errgroup.Group
	g.Go(func() error {
		page, txErr = s.transactionPage(ctx, filter, force)
		return txErr
	})
	g.Go(func() error {
		subs, subErr = s.subscriptionList(ctx, force)
		return subErr
	})
	g.Go(func() error {
		cats, catErr = s.categoryList(ctx, force)
		return catErr
	})
	_ = g.Wait()

	switch {
	case txErr != nil:
		return Dashboard{}, fmt.Errorf("load transactions: %w", txErr)
	case subErr != nil:
		return Dashboard{}, fmt.Errorf("load subscriptions: %w", subErr)
	case catErr != nil:
		return Dashboard{}, fmt.Errorf("load categories: %w", catErr)
	}

	income, expense := FlowTotals(page.Transactions)
	s.logger.Debug("dashboard composed",
		"transactions", len(page.Transactions),
		"subscriptions", len(subs),
		"categories", len(cats),
		"forced", force)

	return Dashboard{
		Transactions:  page,
		Subscriptions: activeSubscriptions(subs),
		Categories:    activeCategories(cats),
		Costs:         model.SubscriptionCostTotals(subs),
		From:          filter.From,
		To:            filter.To,
		Income:        income,
		Expense:       expense,
	}, nil
}

// MonthLabel formats the dashboard's window as a human-readable month.
func (d Dashboard) MonthLabel() string {
	t, err := d.From.Time()
	if err != nil {
		return string(d.From)
	}
	return t.Format("January 2006")
}
