package api

import (
	"context"
	"fmt"

	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

// SubscriptionService binds subscription operations to their endpoints.
type SubscriptionService struct {
	client *Client
}

// NewSubscriptionService creates the subscription endpoint bindings.
func NewSubscriptionService(client *Client) *SubscriptionService {
	return &SubscriptionService{client: client}
}

// List fetches all subscriptions, active and inactive.
func (s *SubscriptionService) List(ctx context.Context) ([]model.Subscription, error) {
	return Get[[]model.Subscription](ctx, s.client, "/subscriptions", nil)
}

// Get fetches one subscription by ID.
func (s *SubscriptionService) Get(ctx context.Context, id int64) (model.Subscription, error) {
	return Get[model.Subscription](ctx, s.client, fmt.Sprintf("/subscriptions/%d", id), nil)
}

// Create registers a new subscription and returns the server-assigned
// record.
func (s *SubscriptionService) Create(ctx context.Context, payload model.SubscriptionCreate) (model.Subscription, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Subscription{}, err
	}
	return Post[model.Subscription](ctx, s.client, "/subscriptions/create", payload)
}

// Update applies a partial update and returns the updated record.
func (s *SubscriptionService) Update(ctx context.Context, id int64, payload model.SubscriptionUpdate) (model.Subscription, error) {
	if err := s.client.ValidatePayload(payload); err != nil {
		return model.Subscription{}, err
	}
	return Put[model.Subscription](ctx, s.client, fmt.Sprintf("/subscriptions/%d/update", id), payload)
}

// Delete removes a subscription.
func (s *SubscriptionService) Delete(ctx context.Context, id int64) error {
	_, err := Delete[struct{}](ctx, s.client, fmt.Sprintf("/subscriptions/%d/delete", id))
	return err
}

// Activate turns a paused subscription back on and returns the updated
// record.
func (s *SubscriptionService) Activate(ctx context.Context, id int64) (model.Subscription, error) {
	return Post[model.Subscription](ctx, s.client, fmt.Sprintf("/subscriptions/%d/activate", id), nil)
}

// Deactivate pauses a subscription and returns the updated record.
func (s *SubscriptionService) Deactivate(ctx context.Context, id int64) (model.Subscription, error) {
	return Post[model.Subscription](ctx, s.client, fmt.Sprintf("/subscriptions/%d/deactivate", id), nil)
}
