// Package budget is the domain facade over the typed client and the query
// cache. It exposes per-entity reads that go through the cache, optimistic
// mutations that snapshot and roll back on failure, derived views computed
// from cached lists, and the composite dashboard.
package budget

import (
	"log/slog"

	"github.com/kakeibolab/kakeibo-sync/internal/api"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Service ties the per-entity endpoint bindings to the query orchestrator.
// All reads and writes against the budget data go through it.
type Service struct {
	categories    *api.CategoryService
	subscriptions *api.SubscriptionService
	transactions  *api.TransactionService
	queries       *query.Queries
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for service diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates the domain facade over the given client and query coordinator.
func New(client *api.Client, queries *query.Queries, opts ...Option) *Service {
	s := &Service{
		categories:    api.NewCategoryService(client),
		subscriptions: api.NewSubscriptionService(client),
		transactions:  api.NewTransactionService(client),
		queries:       queries,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying cache store, for snapshot persistence and
// inspection.
func (s *Service) Store() *query.Store {
	return s.queries.Store()
}

// cachedListKeys returns every list slot currently cached for the entity.
// Optimistic mutations rewrite all of them so no cached page keeps showing
// pre-mutation data.
func (s *Service) cachedListKeys(entity model.EntityType) []query.Key {
	return s.queries.Store().KeysWithPrefix(query.ListKey(entity))
}

// withDetail appends the detail slot to a list-key write set.
func withDetail(lists []query.Key, detail query.Key) []query.Key {
	keys := make([]query.Key, 0, len(lists)+1)
	keys = append(keys, lists...)
	return append(keys, detail)
}

// rewriteSlots replaces each cached value of type T under keys with
// rewrite(value). Slots holding other types or nothing are left alone. The
// rewrite must return a fresh value; cached values are never mutated in
// place.
func rewriteSlots[T any](store *query.Store, keys []query.Key, rewrite func(T) T) {
	for _, key := range keys {
		lookup := store.Lookup(key)
		if !lookup.Found {
			continue
		}
		value, ok := lookup.Value.(T)
		if !ok {
			continue
		}
		store.Set(key, rewrite(value))
	}
}
