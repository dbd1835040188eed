package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widget is a minimal schema-carrying payload for exercising the client
// without dragging in the domain models.
type widget struct {
	Name string `json:"name" validate:"required"`
	ID   int64  `json:"id" validate:"required,gt=0"`
}

func newTestClient(serverURL string, opts ...Option) *Client {
	base := []Option{WithBaseURL(serverURL + "/api")}
	return NewClient(append(base, opts...)...)
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/widgets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []widget{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	widgets, err := Get[[]widget](context.Background(), client, "/widgets", nil)
	require.NoError(t, err)
	require.Len(t, widgets, 2)
	assert.Equal(t, "one", widgets[0].Name)
	assert.Equal(t, int64(2), widgets[1].ID)
	assert.Equal(t, 0, client.InFlight(), "registry must be empty after completion")
}

func TestClient_GetWithCount(t *testing.T) {
	t.Run("server count wins", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    []widget{{ID: 1, Name: "one"}},
				"count":   57,
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		widgets, count, err := GetWithCount[[]widget](context.Background(), client, "/widgets", nil)
		require.NoError(t, err)
		assert.Len(t, widgets, 1)
		assert.Equal(t, 57, count)
	})

	t.Run("missing count falls back to item length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    []widget{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, count, err := GetWithCount[[]widget](context.Background(), client, "/widgets", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestClient_HTTPError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		statusCode  int
	}{
		{
			name:        "structured error body",
			statusCode:  http.StatusNotFound,
			body:        `{"error":"widget not found"}`,
			wantMessage: "widget not found",
		},
		{
			name:        "unparseable error body",
			statusCode:  http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "HTTP error: 502",
		},
		{
			name:        "empty error body",
			statusCode:  http.StatusInternalServerError,
			body:        ``,
			wantMessage: "HTTP error: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := Get[widget](context.Background(), client, "/widgets/1", nil)

			apiErr, ok := AsError(err)
			require.True(t, ok, "expected a classified error, got %v", err)
			assert.Equal(t, KindHTTP, apiErr.Kind)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestClient_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "schema violation in data",
			body: `{"success":true,"data":{"id":0,"name":""}}`,
		},
		{
			name: "malformed json",
			body: `{"success":true,"data":`,
		},
		{
			name: "envelope not successful",
			body: `{"success":false,"data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := Get[widget](context.Background(), client, "/widgets/1", nil)

			apiErr, ok := AsError(err)
			require.True(t, ok, "expected a classified error, got %v", err)
			assert.Equal(t, KindValidation, apiErr.Kind)
			assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
			assert.False(t, apiErr.Retryable(), "validation errors must never be retryable")
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			_, _ = w.Write([]byte(`{"success":true,"data":null}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithTimeout(30*time.Millisecond))

	_, err := Get[widget](context.Background(), client, "/widgets/1", nil)

	apiErr, ok := AsError(err)
	require.True(t, ok, "expected a classified error, got %v", err)
	assert.Equal(t, KindTimeout, apiErr.Kind, "a deadline expiry is a timeout, not a generic network failure")
	assert.Equal(t, http.StatusRequestTimeout, apiErr.StatusCode)
	assert.True(t, apiErr.Retryable())
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := newTestClient(serverURL)

	_, err := Get[widget](context.Background(), client, "/widgets/1", nil)

	apiErr, ok := AsError(err)
	require.True(t, ok, "expected a classified error, got %v", err)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.True(t, apiErr.Retryable())
}

func TestClient_CancelByID(t *testing.T) {
	started := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case started <- r.Header.Get(RequestIDHeader):
		default:
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	errCh := make(chan error, 1)
	go func() {
		_, err := Get[widget](context.Background(), client, "/widgets/1", nil)
		errCh <- err
	}()

	callID := <-started
	require.True(t, client.Cancel(callID), "in-flight call must be found by its ID")

	err := <-errCh
	apiErr, ok := AsError(err)
	require.True(t, ok, "expected a classified error, got %v", err)
	assert.Equal(t, KindNetwork, apiErr.Kind, "manual cancellation is not a timeout")
	assert.Equal(t, 0, apiErr.StatusCode)

	assert.False(t, client.Cancel(callID), "cancelling a settled ID must be a safe no-op")
	assert.False(t, client.Cancel("no-such-id"))
}

func TestClient_CancelAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := Get[widget](context.Background(), client, "/widgets", nil)
			errCh <- err
		}()
	}
	require.Eventually(t, func() bool { return client.InFlight() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, client.CancelAll())

	for i := 0; i < 2; i++ {
		apiErr, ok := AsError(<-errCh)
		require.True(t, ok)
		assert.Equal(t, KindNetwork, apiErr.Kind)
	}
	assert.Equal(t, 0, client.InFlight())
	assert.Equal(t, 0, client.CancelAll(), "second cancel-all finds nothing")
}

func TestClient_ErrorObserverFiresOncePerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer server.Close()

	var observed atomic.Int32
	var lastKind ErrorKind
	client := newTestClient(server.URL, WithErrorObserver(func(apiErr *Error) {
		observed.Add(1)
		lastKind = apiErr.Kind
	}))

	_, err := Get[widget](context.Background(), client, "/widgets/1", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), observed.Load())
	assert.Equal(t, KindHTTP, lastKind)

	// A success must not touch the observer.
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":1,"name":"w"}}`))
	}))
	defer okServer.Close()

	okClient := newTestClient(okServer.URL, WithErrorObserver(func(*Error) { observed.Add(100) }))
	_, err = Get[widget](context.Background(), okClient, "/widgets/1", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), observed.Load())
}

func TestClient_Hooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session-42", r.Header.Get("X-Session"))
		_, _ = w.Write([]byte(`{"success":false,"data":null}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL,
		WithRequestHook(func(req *http.Request) {
			req.Header.Set("X-Session", "session-42")
		}),
		WithResponseHook(func(_ *http.Response, body []byte) []byte {
			// Rewrite the envelope before decoding so the call succeeds.
			return []byte(`{"success":true,"data":{"id":9,"name":"patched"}}`)
		}),
	)

	got, err := Get[widget](context.Background(), client, "/widgets/9", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, "patched", got.Name)
}

func TestClient_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "kakeibo-sync", r.Header.Get("X-Client"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":1,"name":"w"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithHeader("X-Client", "kakeibo-sync"))

	_, err := Get[widget](context.Background(), client, "/widgets/1", nil)
	require.NoError(t, err)
}

func TestClient_PostSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got widget
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "new", got.Name)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    widget{ID: 10, Name: got.Name},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	created, err := Post[widget](context.Background(), client, "/widgets/create", widget{ID: 1, Name: "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
}
