package budget

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kakeibolab/kakeibo-sync/internal/api"
	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// newTestService wires a Service against a test server with millisecond
// retry backoff so failure paths stay fast.
func newTestService(t *testing.T, handler http.Handler, storeOpts ...query.StoreOption) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := query.NewStore(storeOpts...)
	t.Cleanup(store.Close)

	client := api.NewClient(api.WithBaseURL(server.URL + "/api"))
	queries := query.NewQueries(store, query.WithRetryOptions(common.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}))
	return New(client, queries)
}

func respondData(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data}); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func respondCount(t *testing.T, w http.ResponseWriter, data any, count int) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data, "count": count}); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

func categoryFixture(id int64, name string, flow model.FlowType, order int, active bool) model.Category {
	return model.Category{
		ID:           id,
		Name:         name,
		Type:         flow,
		Color:        "#4a90d9",
		Icon:         "wallet",
		DisplayOrder: order,
		IsActive:     active,
	}
}

func subscriptionFixture(id int64, name string, amount int64, freq model.Frequency, active bool) model.Subscription {
	return model.Subscription{
		ID:              id,
		Name:            name,
		Amount:          amount,
		Frequency:       freq,
		NextPaymentDate: model.Today(),
		IsActive:        active,
	}
}

func transactionFixture(id, amount int64, flow model.FlowType, date model.Date) model.Transaction {
	return model.Transaction{
		ID:              id,
		Amount:          amount,
		Type:            flow,
		TransactionDate: date,
	}
}
