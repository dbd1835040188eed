package budget

import (
	"context"
	"fmt"
	"sort"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Categories returns all categories, served from cache when fresh.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categoryList(ctx, false)
}

func (s *Service) categoryList(ctx context.Context, force bool) ([]model.Category, error) {
	key := query.ListKey(model.EntityCategories)
	if force {
		return query.Refresh(ctx, s.queries, key, s.categories.List)
	}
	return query.Run(ctx, s.queries, key, s.categories.List)
}

// Category returns one category by ID. Non-positive IDs are rejected locally
// without touching the network.
func (s *Service) Category(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, fmt.Errorf("category %d: %w", id, common.ErrInvalidID)
	}
	return query.Run(ctx, s.queries, query.DetailKey(model.EntityCategories, id),
		func(ctx context.Context) (model.Category, error) {
			return s.categories.Get(ctx, id)
		})
}

// CreateCategory registers a new category. The record's identity is
// server-assigned, so there is no optimistic apply; cached category lists
// are invalidated once the create settles.
func (s *Service) CreateCategory(ctx context.Context, payload model.CategoryCreate) (model.Category, error) {
	return query.RunMutation(ctx, s.queries, query.Mutation[model.Category]{
		Call: func(ctx context.Context) (model.Category, error) {
			return s.categories.Create(ctx, payload)
		},
		Invalidate: invalidationScope(model.EntityCategories),
	})
}

// UpdateCategory applies a partial update. Every cached list slot and the
// detail slot show the patched record before the server responds; a failed
// call restores them exactly.
func (s *Service) UpdateCategory(ctx context.Context, id int64, patch model.CategoryUpdate) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, fmt.Errorf("category %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntityCategories, id)
	lists := s.cachedListKeys(model.EntityCategories)

	return query.RunMutation(ctx, s.queries, query.Mutation[model.Category]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(categories []model.Category) []model.Category {
				out := model.CloneAll(categories)
				for i := range out {
					if out[i].ID == id {
						out[i] = patch.ApplyTo(out[i])
					}
				}
				return out
			})
			rewriteSlots(store, []query.Key{detail}, patch.ApplyTo)
		},
		Call: func(ctx context.Context) (model.Category, error) {
			return s.categories.Update(ctx, id, patch)
		},
		Invalidate: invalidationScope(model.EntityCategories),
	})
}

// DeleteCategory removes a category. Cached lists drop the record
// immediately; a failed call puts it back.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("category %d: %w", id, common.ErrInvalidID)
	}
	detail := query.DetailKey(model.EntityCategories, id)
	lists := s.cachedListKeys(model.EntityCategories)

	_, err := query.RunMutation(ctx, s.queries, query.Mutation[struct{}]{
		Touch: withDetail(lists, detail),
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(categories []model.Category) []model.Category {
				out := make([]model.Category, 0, len(categories))
				for _, c := range categories {
					if c.ID == id {
						continue
					}
					out = append(out, c.Clone())
				}
				return out
			})
			store.Delete(detail)
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.categories.Delete(ctx, id)
		},
		Invalidate: invalidationScope(model.EntityCategories),
	})
	return err
}

// ReorderCategories persists a new display order. Cached lists re-sort
// immediately to the intended order.
func (s *Service) ReorderCategories(ctx context.Context, orders []model.CategoryOrder) error {
	lists := s.cachedListKeys(model.EntityCategories)
	position := make(map[int64]int, len(orders))
	for _, o := range orders {
		position[o.ID] = o.DisplayOrder
	}

	_, err := query.RunMutation(ctx, s.queries, query.Mutation[struct{}]{
		Touch: lists,
		Apply: func(store *query.Store) {
			rewriteSlots(store, lists, func(categories []model.Category) []model.Category {
				out := model.CloneAll(categories)
				for i := range out {
					if order, ok := position[out[i].ID]; ok {
						out[i].DisplayOrder = order
					}
				}
				sort.SliceStable(out, func(i, j int) bool {
					return out[i].DisplayOrder < out[j].DisplayOrder
				})
				return out
			})
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.categories.Reorder(ctx, orders)
		},
		Invalidate: invalidationScope(model.EntityCategories),
	})
	return err
}

// CategoriesByType filters the cached category list by flow direction. It is
// a derived view and issues no request of its own beyond the list fetch it
// reads through.
func (s *Service) CategoriesByType(ctx context.Context, flow model.FlowType) ([]model.Category, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if c.Type == flow {
			out = append(out, c)
		}
	}
	return out, nil
}

// ActiveCategories filters the cached category list to active entries.
func (s *Service) ActiveCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return activeCategories(categories), nil
}

func activeCategories(categories []model.Category) []model.Category {
	out := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}
