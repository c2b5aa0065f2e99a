package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIError is a non-2xx answer from the renderer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("renderer request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient is the renderer client speaking the hosted edit API.
// Requests are not retried.
type HTTPClient struct {
	baseURL    string
	stage      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, stage, apiKey string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		stage:   stage,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) endpoint(parts ...string) string {
	segs := []string{c.baseURL}
	if c.stage != "" {
		segs = append(segs, c.stage)
	}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

// Submit posts the edit and returns the renderer job id.
func (c *HTTPClient) Submit(ctx context.Context, edit Edit) (string, error) {
	body, err := json.Marshal(edit)
	if err != nil {
		return "", fmt.Errorf("marshal edit: %w", err)
	}

	endpoint := c.endpoint("render")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Info("submitting render",
			"url", endpoint,
			"tracks", len(edit.Timeline.Tracks),
			"clips", edit.Timeline.ClipCount(),
			"body_bytes", len(body),
		)
	}

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Response.ID == "" {
		return "", fmt.Errorf("renderer accepted the edit without a job id: %s", out.Message)
	}
	return out.Response.ID, nil
}

// Status fetches the current state of a render job.
func (c *HTTPClient) Status(ctx context.Context, id string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("render", id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var out statusResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Response.ID == "" {
		out.Response.ID = id
	}
	return &out.Response, nil
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 4096)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
