package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Subscriptions returns all subscriptions, active and inactive, served from
// cache when fresh.
func (s *Service) Subscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.subscriptionList(ctx, false)
}

func (s *Service) subscriptionList(ctx context.Context, force bool) ([]model.Subscription, error) {
	key := query.ListKey(model.EntitySubscriptions)
	if force {
		return query.Refresh(ctx, s.queries, key, s.subscriptions.List)
	}
	return query.Run(ctx, s.queries, key, s.subscriptions.List)
}

// Subscription returns one subscription by ID. Non-positive IDs are rejected
// locally without touching the network.
func (s *Service) Subscription(ctx context.Context, id int64) (model.Subscription, error) {
	if id <= 0 {
		return model.Subscription{}, fmt.Errorf("subscription %d: %w", id, common.ErrInvalidID)
	}
	return query.Run(ctx, s.queries, query.DetailKey(model.EntitySubscriptions, id),
		func(ctx context.Context) (model.Subscription, error) {
			return s.subscriptions.Get(ctx, id)
		})
}

// CreateSubscription registers a new subscription and invalidates dependent
// caches once the create settles.
func (s *Service) CreateSubscription(ctx context.Context, payload model.SubscriptionCreate) (model.Subscription, error) {
	return query.RunMutation(ctx, s.queries, query.Mutation[model.Subscription]{
		Call: func(ctx context.Context) (model.Subscription, error) {
			return s.subscriptions.Create(ctx, payload)
		},
		Invalidate: invalidationScope(model.EntitySubscriptions),
	})
}

// UpdateSubscription applies a partial update, optimistically rewriting
// every cached list slot and the detail slot.
func (s *Service) UpdateSubscription(ctx context.Context, id int64, patch model.SubscriptionUpdate) (model.Subscription, error) {
	if id <= 0 {
		return model.Subscription{}, fmt.Errorf("subscription %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntitySubscriptions, id)
	lists := s.cachedListKeys(model.EntitySubscriptions)

	return query.RunMutation(ctx, s.queries, query.Mutation[model.Subscription]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(subs []model.Subscription) []model.Subscription {
				out := model.CloneAll(subs)
				for i := range out {
					if out[i].ID == id {
						out[i] = patch.ApplyTo(out[i])
					}
				}
				return out
			})
			rewriteSlots(store, []query.Key{detail}, patch.ApplyTo)
		},
		Call: func(ctx context.Context) (model.Subscription, error) {
			return s.subscriptions.Update(ctx, id, patch)
		},
		Invalidate: invalidationScope(model.EntitySubscriptions),
	})
}

// DeleteSubscription removes a subscription. Cached lists drop the record
// immediately; a failed call puts every touched slot back exactly as it was.
func (s *Service) DeleteSubscription(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("subscription %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntitySubscriptions, id)
	lists := s.cachedListKeys(model.EntitySubscriptions)

	_, err := query.RunMutation(ctx, s.queries, query.Mutation[struct{}]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(subs []model.Subscription) []model.Subscription {
				out := make([]model.Subscription, 0, len(subs))
				for _, sub := range subs {
					if sub.ID == id {
						continue
					}
					out = append(out, sub.Clone())
				}
				return out
			})
			store.Delete(detail)
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.subscriptions.Delete(ctx, id)
		},
		Invalidate: invalidationScope(model.EntitySubscriptions),
	})
	return err
}

// ActivateSubscription turns a subscription on. The cached record shows
// isActive true before the server responds.
func (s *Service) ActivateSubscription(ctx context.Context, id int64) (model.Subscription, error) {
	return s.setSubscriptionActive(ctx, id, true, s.subscriptions.Activate)
}

// DeactivateSubscription pauses a subscription. The cached record shows
// isActive false before the server responds.
func (s *Service) DeactivateSubscription(ctx context.Context, id int64) (model.Subscription, error) {
	return s.setSubscriptionActive(ctx, id, false, s.subscriptions.Deactivate)
}

func (s *Service) setSubscriptionActive(ctx context.Context, id int64, active bool, call func(context.Context, int64) (model.Subscription, error)) (model.Subscription, error) {
	if id <= 0 {
		return model.Subscription{}, fmt.Errorf("subscription %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntitySubscriptions, id)
	lists := s.cachedListKeys(model.EntitySubscriptions)

	flip := func(sub model.Subscription) model.Subscription {
		out := sub.Clone()
		out.IsActive = active
		return out
	}

	return query.RunMutation(ctx, s.queries, query.Mutation[model.Subscription]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(subs []model.Subscription) []model.Subscription {
				out := model.CloneAll(subs)
				for i := range out {
					if out[i].ID == id {
						out[i] = flip(out[i])
					}
				}
				return out
			})
			rewriteSlots(store, []query.Key{detail}, flip)
		},
		Call: func(ctx context.Context) (model.Subscription, error) {
			return call(ctx, id)
		},
		Invalidate: invalidationScope(model.EntitySubscriptions),
	})
}

// ActiveSubscriptions filters the cached subscription list to active
// entries. Derived view; no request of its own.
func (s *Service) ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	subs, err := s.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return activeSubscriptions(subs), nil
}

func activeSubscriptions(subs []model.Subscription) []model.Subscription {
	out := make([]model.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive {
			out = append(out, sub)
		}
	}
	return out
}

// SubscriptionsDueThisMonth lists the active subscriptions whose next
// payment falls inside the current calendar month.
func (s *Service) SubscriptionsDueThisMonth(ctx context.Context) ([]model.Subscription, error) {
	subs, err := s.ActiveSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	from, to := model.MonthWindow(time.Now())
	out := make([]model.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.NextPaymentDate.InRange(from, to) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// CostTotals computes the normalized monthly and yearly cost of the active
// subscriptions from the cached list.
func (s *Service) CostTotals(ctx context.Context) (model.CostTotals, error) {
	subs, err := s.Subscriptions(ctx)
	if err != nil {
		return model.CostTotals{}, err
	}
	return model.SubscriptionCostTotals(subs), nil
}
