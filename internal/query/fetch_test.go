package query

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakeibolab/kakeibo-sync/internal/api"
	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

func fastRetryOptions() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestQueries(t *testing.T, storeOpts ...StoreOption) *Queries {
	t.Helper()
	return NewQueries(newTestStore(t, storeOpts...), WithRetryOptions(fastRetryOptions()))
}

func TestRun_CachesFirstFetch(t *testing.T) {
	q := newTestQueries(t)
	key := ListKey(model.EntityCategories)

	var calls atomic.Int32
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"food", "rent"}, nil
	}

	first, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "rent"}, first)

	second, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "a fresh cache hit must not refetch")
}

func TestRun_DeduplicatesConcurrentFetches(t *testing.T) {
	q := newTestQueries(t)
	key := ListKey(model.EntityCategories)

	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	gate := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-gate
		return "value", nil
	}

	const workers = 5
	var wg sync.WaitGroup
	results := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Run(context.Background(), q, key, fetch)
		}(i)
	}

	<-entered
	// Give the remaining workers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent requesters must share one underlying fetch")
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "value", results[i])
	}
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	q := newTestQueries(t)
	key := ListKey(model.EntityCategories)

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", api.NewHTTPError(http.StatusInternalServerError, "boom")
		}
		return "recovered", nil
	}

	got, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRun_NeverRetriesClientErrors(t *testing.T) {
	tests := []struct {
		err  *api.Error
		name string
	}{
		{name: "bad request", err: api.NewHTTPError(http.StatusBadRequest, "bad")},
		{name: "not found", err: api.NewHTTPError(http.StatusNotFound, "missing")},
		{name: "validation", err: api.NewValidationError("contract drift", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueries(t)
			key := ListKey(model.EntityCategories)

			var calls atomic.Int32
			_, err := Run(context.Background(), q, key, func(context.Context) (string, error) {
				calls.Add(1)
				return "", tt.err
			})

			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load(), "4xx and validation failures must not be retried")

			apiErr, ok := api.AsError(err)
			require.True(t, ok, "the classified error must survive propagation")
			assert.Equal(t, tt.err.Kind, apiErr.Kind)
		})
	}
}

func TestRun_RetryExhaustionKeepsClassification(t *testing.T) {
	q := NewQueries(newTestStore(t), WithRetryOptions(common.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}))
	key := ListKey(model.EntityCategories)

	var calls atomic.Int32
	_, err := Run(context.Background(), q, key, func(context.Context) (string, error) {
		calls.Add(1)
		return "", api.NewHTTPError(http.StatusServiceUnavailable, "busy")
	})

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.ErrorIs(t, err, common.ErrMaxRetries)

	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestRun_FailedFetchCachesNothing(t *testing.T) {
	q := newTestQueries(t)
	key := ListKey(model.EntityCategories)

	_, err := Run(context.Background(), q, key, func(context.Context) (string, error) {
		return "", api.NewHTTPError(http.StatusNotFound, "missing")
	})
	require.Error(t, err)
	assert.Equal(t, 0, q.Store().Len())

	// The next read fetches again rather than serving a cached failure.
	var calls atomic.Int32
	got, err := Run(context.Background(), q, key, func(context.Context) (string, error) {
		calls.Add(1)
		return "found now", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "found now", got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_ServesStaleAndRevalidatesInBackground(t *testing.T) {
	q := NewQueries(
		newTestStore(t, WithStaleAfter(20*time.Millisecond), WithEvictAfter(10*time.Second)),
		WithRetryOptions(fastRetryOptions()),
	)
	key := ListKey(model.EntitySubscriptions)

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		n := calls.Add(1)
		if n == 1 {
			return "first", nil
		}
		return "second", nil
	}

	first, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	time.Sleep(35 * time.Millisecond)

	// The stale read answers immediately with last known good data.
	stale, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "first", stale)

	// The background revalidation lands on its own.
	require.Eventually(t, func() bool {
		lookup := q.Store().Lookup(key)
		return lookup.Found && !lookup.Stale && lookup.Value == "second"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRun_CancelledCallerDoesNotPoisonRevalidation(t *testing.T) {
	q := NewQueries(
		newTestStore(t, WithStaleAfter(10*time.Millisecond), WithEvictAfter(10*time.Second)),
		WithRetryOptions(fastRetryOptions()),
	)
	key := ListKey(model.EntitySubscriptions)

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "value", nil
	}

	_, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	// A caller whose context dies right after the stale read must not take
	// the background refetch down with it.
	ctx, cancel := context.WithCancel(context.Background())
	stale, err := Run(ctx, q, key, fetch)
	cancel()
	require.NoError(t, err)
	assert.Equal(t, "value", stale)

	require.Eventually(t, func() bool {
		return !q.Store().Lookup(key).Stale
	}, time.Second, 5*time.Millisecond)
}

func TestRefresh_BypassesFreshCache(t *testing.T) {
	q := newTestQueries(t)
	key := ListKey(model.EntityCategories)

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "first", nil
		}
		return "second", nil
	}

	first, err := Run(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	refreshed, err := Refresh(context.Background(), q, key, fetch)
	require.NoError(t, err)
	assert.Equal(t, "second", refreshed, "refresh must hit the network despite a fresh cache entry")
	assert.Equal(t, int32(2), calls.Load())

	lookup := q.Store().Lookup(key)
	assert.Equal(t, "second", lookup.Value, "refresh must update the cache")
}
