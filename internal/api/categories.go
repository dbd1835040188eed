package api

import (
	"context"
	"fmt"

	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

// CategoryService binds category operations to their endpoints. It does no
// caching and no business logic; orchestration lives above it.
type CategoryService struct {
	client *Client
}

// NewCategoryService creates the category endpoint bindings.
func NewCategoryService(client *Client) *CategoryService {
	return &CategoryService{client: client}
}

// List fetches all categories.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return Get[[]model.Category](ctx, s.client, "/categories", nil)
}

// Get fetches one category by ID.
func (s *CategoryService) Get(ctx context.Context, id int64) (model.Category, error) {
	return Get[model.Category](ctx, s.client, fmt.Sprintf("/categories/%d", id), nil)
}

// Create registers a new category and returns the server-assigned record.
func (s *CategoryService) Create(ctx context.Context, payload model.CategoryCreate) (model.Category, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Category{}, err
	}
	return Post[model.Category](ctx, s.client, "/categories/create", payload)
}

// Update applies a partial update and returns the updated record.
func (s *CategoryService) Update(ctx context.Context, id int64, payload model.CategoryUpdate) (model.Category, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Category{}, err
	}
	return Put[model.Category](ctx, s.client, fmt.Sprintf("/categories/%d/update", id), payload)
}

// Delete removes a category.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	_, err := Delete[struct{}](ctx, s.client, fmt.Sprintf("/categories/%d/delete", id))
	return err
}

// reorderPayload wraps the new ordering for the reorder endpoint.
type reorderPayload struct {
	Categories []model.CategoryOrder `json:"categories" validate:"required,min=1,dive"`
}

// Reorder persists a new display order for the given categories.
func (s *CategoryService) Reorder(ctx context.Context, orders []model.CategoryOrder) error {
	payload := reorderPayload{Categories: orders}
	if err := s.client.ValidatePayload(payload); err != nil {
		return err
	}
	_, err := Post[struct{}](ctx, s.client, "/categories/reorder", payload)
	return err
}
