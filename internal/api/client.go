// Package api is the typed HTTP request layer for the budget server.
//
// Every call goes out with its own UUID and cancellation token, returns a
// schema-validated payload decoded from the server's response envelope, and
// fails with a classified *Error carrying an HTTP-equivalent status code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a single request when no override is configured.
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries the per-call UUID, the same identifier the
// cancellation registry is keyed by.
const RequestIDHeader = "X-Request-ID"

// envelope is the server's uniform response wrapper.
type envelope[T any] struct {
	Data       T               `json:"data"`
	Count      *int            `json:"count"`
	Pagination json.RawMessage `json:"pagination"`
	Success    bool            `json:"success"`
}

// errorBody is the server's structured error shape.
type errorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// Client performs typed requests against the budget server.
type Client struct {
	httpClient    *http.Client
	validate      *validator.Validate
	registry      *requestRegistry
	logger        *slog.Logger
	headers       map[string]string
	requestHook   func(*http.Request)
	responseHook  func(*http.Response, []byte) []byte
	errorObserver func(*Error)
	baseURL       string
	timeout       time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the server base URL, including the /api prefix.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHeader adds a default header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestHook installs a transform run on every outgoing request before
// it is sent. The hook may mutate the request, e.g. to attach auth headers.
func WithRequestHook(hook func(*http.Request)) Option {
	return func(c *Client) {
		c.requestHook = hook
	}
}

// WithResponseHook installs a transform run on every response body before
// decoding. The returned bytes replace the body.
func WithResponseHook(hook func(*http.Response, []byte) []byte) Option {
	return func(c *Client) {
		c.responseHook = hook
	}
}

// WithErrorObserver installs a hook invoked exactly once per failed request
// with the classified error, before it propagates to the caller.
func WithErrorObserver(observer func(*Error)) Option {
	return func(c *Client) {
		c.errorObserver = observer
	}
}

// NewClient creates a request client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		registry:   newRequestRegistry(),
		logger:     slog.Default(),
		headers:    make(map[string]string),
		baseURL:    "http://localhost:3000/api",
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cancel aborts the in-flight request with the given call ID. It reports
// whether the ID was found; cancelling a completed or unknown ID is a no-op.
func (c *Client) Cancel(callID string) bool {
	return c.registry.cancel(callID)
}

// CancelAll aborts every in-flight request and returns how many were
// cancelled.
func (c *Client) CancelAll() int {
	return c.registry.cancelAll()
}

// InFlight returns the number of currently registered requests.
func (c *Client) InFlight() int {
	return c.registry.size()
}

// ValidatePayload checks a request body against its schema tags before it is
// sent. Resource services call this so malformed payloads never reach the
// wire.
func (c *Client) ValidatePayload(payload any) error {
	if err := c.validateValue(payload); err != nil {
		return c.fail(NewValidationError("invalid request payload", err))
	}
	return nil
}

// Get issues a GET request and returns the envelope's data.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	data, _, err := do[T](ctx, c, http.MethodGet, path, query, nil)
	return data, err
}

// GetWithCount issues a GET request and returns the envelope's data together
// with the server-reported total count. When the envelope carries no count,
// the count falls back to the number of returned items.
func GetWithCount[T any](ctx context.Context, c *Client, path string, query url.Values) (T, int, error) {
	return do[T](ctx, c, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body and returns the envelope's
// data.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	data, _, err := do[T](ctx, c, http.MethodPost, path, nil, body)
	return data, err
}

// Put issues a PUT request with a JSON body and returns the envelope's data.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	data, _, err := do[T](ctx, c, http.MethodPut, path, nil, body)
	return data, err
}

// Delete issues a DELETE request and returns the envelope's data.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	data, _, err := do[T](ctx, c, http.MethodDelete, path, nil, nil)
	return data, err
}

// do performs one HTTP exchange: register a cancellable call, send, classify
// any failure, and on success decode and validate the envelope.
func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, int, error) {
	var zero T

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return zero, 0, c.fail(NewNetworkError(fmt.Sprintf("invalid request URL %s%s", c.baseURL, path), err))
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return zero, 0, c.fail(NewValidationError("failed to encode request body", marshalErr))
		}
		bodyReader = bytes.NewReader(encoded)
	}

	callID := uuid.NewString()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.registry.add(callID, cancel)
	defer func() {
		c.registry.remove(callID)
		cancel()
	}()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), bodyReader)
	if err != nil {
		return zero, 0, c.fail(NewNetworkError("failed to create request", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, callID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.requestHook != nil {
		c.requestHook(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, 0, c.fail(classifyTransport(reqCtx, err, c.timeout))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, 0, c.fail(classifyTransport(reqCtx, err, c.timeout))
	}
	if c.responseHook != nil {
		raw = c.responseHook(resp, raw)
	}

	c.logger.Debug("request completed",
		"id", callID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return zero, 0, c.fail(NewHTTPError(resp.StatusCode, serverErrorMessage(resp.StatusCode, raw)))
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, 0, c.fail(NewValidationError("failed to decode response", err))
	}
	if !env.Success {
		return zero, 0, c.fail(NewValidationError("response envelope not marked successful", nil))
	}
	if err := c.validateValue(env.Data); err != nil {
		return zero, 0, c.fail(NewValidationError("response failed schema validation", err))
	}

	count := 0
	if env.Count != nil {
		count = *env.Count
	} else if items := reflect.ValueOf(env.Data); items.Kind() == reflect.Slice {
		count = items.Len()
	}
	return env.Data, count, nil
}

// fail reports a classified error to the observer, exactly once per failure,
// and returns it for propagation.
func (c *Client) fail(apiErr *Error) error {
	if c.errorObserver != nil {
		c.errorObserver(apiErr)
	}
	return apiErr
}

// classifyTransport sorts a transport-level failure into timeout versus
// network. A deadline expiry is a timeout; an active cancellation or any
// other failure to reach the server is a network error with status 0.
func classifyTransport(ctx context.Context, err error, timeout time.Duration) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(fmt.Sprintf("request timed out after %s", timeout), err)
	case errors.Is(err, context.Canceled):
		return NewNetworkError("request cancelled", err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return NewTimeoutError(fmt.Sprintf("request timed out after %s", timeout), err)
		}
		return NewNetworkError("request failed", err)
	}
}

// serverErrorMessage extracts the message from a structured error body, or
// synthesizes one from the status code when the body is not parseable.
func serverErrorMessage(statusCode int, raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("HTTP error: %d", statusCode)
}

// validateValue applies struct tag validation to a decoded value. Slices are
// validated element-wise; values that are not structs have no schema to
// check.
func (c *Client) validateValue(value any) error {
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := c.validateValue(v.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		return nil
	}
}
