// Package functions calls HTTPS-callable cloud functions.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Function names used by the phone verification flow.
const (
	InitPhoneNumber   = "initPhoneNumber"
	VerifyPhoneNumber = "verifyPhoneNumber"
)

// EmulatorOrigin is the local functions emulator.
const EmulatorOrigin = "http://localhost:5000"

// DefaultRegion is the region functions are deployed to unless configured otherwise.
const DefaultRegion = "us-central1"

// EmulatorURL returns the emulator base URL {origin}/{project}/{region}, which is
// where the emulator serves callable functions. An empty region means DefaultRegion.
// Without a project only the origin is returned.
func EmulatorURL(project, region string) string {
	if project == "" {
		return EmulatorOrigin
	}
	if region == "" {
		region = DefaultRegion
	}
	return EmulatorOrigin + "/" + url.PathEscape(project) + "/" + url.PathEscape(region)
}

// ErrRateLimited is returned when every attempt was answered with HTTP 429.
var ErrRateLimited = errors.New("functions: rate limited")

// Error is a failure reported by the function itself.
type Error struct {
	Function   string
	HTTPStatus int
	Status     string
	Message    string
}

func (e *Error) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("function %s: HTTP %d: %s", e.Function, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("function %s: %s: %s", e.Function, e.Status, e.Message)
}

type request struct {
	Data any `json:"data"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client posts callable requests to {baseURL}/{name}. Only HTTP 429 is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	authToken  string
}

// NewClient creates a callable-function client.
func NewClient(baseURL string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// WithAuthToken returns a copy of the client that sends token as a bearer credential.
func (c *Client) WithAuthToken(token string) *Client {
	cp := *c
	cp.authToken = token
	return &cp
}

// Call invokes name with payload and decodes the result into result, which may be nil.
func (c *Client) Call(ctx context.Context, name string, payload, result any) error {
	body, err := json.Marshal(request{Data: payload})
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", name, err)
	}

	requestID := uuid.NewString()
	raw, err := c.post(ctx, name, requestID, body)
	if err != nil {
		slog.Warn("functions: call failed", "function", name, "request_id", requestID, "error", err)
		return err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("parsing %s response: %w", name, err)
	}
	if resp.Error != nil {
		return &Error{Function: name, HTTPStatus: http.StatusOK, Status: resp.Error.Status, Message: resp.Error.Message}
	}

	slog.Info("functions: call succeeded", "function", name, "request_id", requestID)
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", name, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, name, requestID string, body []byte) ([]byte, error) {
	url := c.baseURL + "/" + name

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", requestID)
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return data, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: %s (attempt %d/%d)", ErrRateLimited, name, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, callError(name, resp.StatusCode, data)
	}

	return nil, lastErr
}

// callError decodes the callable error envelope, falling back to the raw body.
func callError(name string, status int, body []byte) error {
	var resp response
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		return &Error{Function: name, HTTPStatus: status, Status: resp.Error.Status, Message: resp.Error.Message}
	}
	return &Error{Function: name, HTTPStatus: status, Message: strings.TrimSpace(string(body))}
}
