package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kakeibolab/kakeibo-sync/internal/api"
	"github.com/kakeibolab/kakeibo-sync/internal/common"
)

// DefaultRetryOptions backs off 1s, 2s, 4s between the initial attempt and
// up to three retries, capped at 30s.
var DefaultRetryOptions = common.RetryOptions{
	MaxAttempts:  4,
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
}

// Queries coordinates fetches against the store: cache-first reads,
// per-key deduplication of in-flight fetches, retry with backoff for
// transient failures, and background revalidation of stale entries.
type Queries struct {
	store  *Store
	logger *slog.Logger
	retry  common.RetryOptions
	flight singleflight.Group
}

// QueriesOption configures a Queries.
type QueriesOption func(*Queries)

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(logger *slog.Logger) QueriesOption {
	return func(q *Queries) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithRetryOptions overrides the backoff applied to retryable fetch
// failures.
func WithRetryOptions(opts common.RetryOptions) QueriesOption {
	return func(q *Queries) {
		q.retry = opts
	}
}

// NewQueries creates the fetch coordinator over the given store.
func NewQueries(store *Store, opts ...QueriesOption) *Queries {
	q := &Queries{
		store:  store,
		logger: slog.Default(),
		retry:  DefaultRetryOptions,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Store exposes the underlying cache store.
func (q *Queries) Store() *Store {
	return q.store
}

// Run returns the value for key, from cache when possible.
//
// A fresh hit returns immediately. A stale hit returns the last known good
// value and kicks off a background revalidation through the same
// single-flight group. A miss blocks on one deduplicated fetch; concurrent
// callers for the same key share a single network call and its result.
func Run[T any](ctx context.Context, q *Queries, key Key, fetch func(context.Context) (T, error)) (T, error) {
	lookup := q.store.Lookup(key)
	if lookup.Found {
		if value, ok := lookup.Value.(T); ok {
			if lookup.Stale {
				cacheEvents.WithLabelValues("refetch").Inc()
				go revalidate(context.WithoutCancel(ctx), q, key, fetch)
			}
			return value, nil
		}
		// A slot holding the wrong type means two call sites disagree about
		// the key. Drop it and fetch.
		q.logger.Error("cache slot holds unexpected type, refetching",
			"key", key.String(), "type", fmt.Sprintf("%T", lookup.Value))
		q.store.Delete(key)
	}
	return fetchShared(ctx, q, key, fetch)
}

// Refresh bypasses the cache and fetches now, still deduplicating against
// concurrent fetches of the same key. The store is updated on success.
func Refresh[T any](ctx context.Context, q *Queries, key Key, fetch func(context.Context) (T, error)) (T, error) {
	return fetchShared(ctx, q, key, fetch)
}

// fetchShared funnels all fetches for one key through a single flight.
// Transient failures retry with backoff; 4xx and validation failures do
// not.
func fetchShared[T any](ctx context.Context, q *Queries, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	result, err, _ := q.flight.Do(key.String(), func() (any, error) {
		var value T
		retryErr := common.WithRetry(ctx, func() error {
			fetched, fetchErr := fetch(ctx)
			if fetchErr != nil {
				return fetchErr
			}
			value = fetched
			return nil
		}, api.IsRetryable, q.retry)
		if retryErr != nil {
			fetches.WithLabelValues("error").Inc()
			return nil, retryErr
		}

		fetches.WithLabelValues("success").Inc()
		q.store.Set(key, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("fetch for key %s produced %T", key.String(), result)
	}
	return value, nil
}

// revalidate refreshes a stale entry in the background. Failures only log:
// the caller already has the last known good value, and the entry stays
// stale so the next access tries again.
func revalidate[T any](ctx context.Context, q *Queries, key Key, fetch func(context.Context) (T, error)) {
	if _, err := fetchShared(ctx, q, key, fetch); err != nil {
		q.logger.Warn("background revalidation failed", "key", key.String(), "error", err)
	}
}
