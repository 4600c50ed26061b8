// Package proxy implements the gateway to the external proxy service. All
// outbound traffic to the backend (subject table, process submissions,
// schedule lookups) goes through a single client.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docal-console/internal/config"
	"github.com/docal-console/internal/types"
	"golang.org/x/time/rate"
)

// Proxy endpoint paths.
const (
	PathDB       = "twitter/db"
	PathProcess  = "twitter/process"
	PathSchedule = "twitter/schedule"
)

// TransportError is returned when the proxy answers with a non-2xx HTTP
// status or the response envelope reports a failure status.
type TransportError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("proxy returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("proxy returned status %d", e.StatusCode)
}

// Client is the HTTP gateway to the proxy service. Outbound calls are paced
// by a client-side rate limiter and honor the request context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a proxy client from configuration.
func NewClient(cfg *config.ProxyConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// NewClientWithHTTP creates a proxy client with a caller-supplied HTTP
// client. Used by tests.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

// Call issues one JSON request against the proxy and returns the decoded
// response envelope. The body is serialized for non-GET methods only.
func (c *Client) Call(ctx context.Context, path, method string, body interface{}) (*types.Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil && method != http.MethodGet {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call proxy %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read proxy response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode proxy response: %w", err)
	}
	return &env, nil
}

// FetchSubjects retrieves the full subject table from the proxy.
func (c *Client) FetchSubjects(ctx context.Context) ([]types.SubjectRow, error) {
	env, err := c.Call(ctx, PathDB, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if env.Status != http.StatusOK {
		return nil, &TransportError{StatusCode: env.Status}
	}

	var table types.Table
	if err := json.Unmarshal(env.Result, &table); err != nil {
		return nil, fmt.Errorf("decode subject table: %w", err)
	}
	if len(table.Rows) == 0 {
		return nil, nil
	}

	var rows []types.SubjectRow
	if err := json.Unmarshal(table.Rows, &rows); err != nil {
		return nil, fmt.Errorf("decode subject rows: %w", err)
	}
	return rows, nil
}

// Process submits one staged investigation action and returns the proxy's
// free-text result. Interpreting the text is the caller's concern.
func (c *Client) Process(ctx context.Context, req types.ProcessRequest) (string, error) {
	env, err := c.Call(ctx, PathProcess, http.MethodPost, req)
	if err != nil {
		return "", err
	}
	if env.Status != http.StatusOK {
		return "", &TransportError{StatusCode: env.Status}
	}

	var result types.ProcessResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return "", fmt.Errorf("decode process result: %w", err)
	}
	return result.Result, nil
}

// FetchSchedule retrieves the caller's pending schedule rows.
func (c *Client) FetchSchedule(ctx context.Context, caller string) ([]types.ScheduleRecord, error) {
	env, err := c.Call(ctx, PathSchedule, http.MethodPost, types.ScheduleRequest{Query: caller})
	if err != nil {
		return nil, err
	}
	if env.Status != http.StatusOK {
		return nil, &TransportError{StatusCode: env.Status}
	}

	var table types.Table
	if err := json.Unmarshal(env.Result, &table); err != nil {
		return nil, fmt.Errorf("decode schedule table: %w", err)
	}
	if len(table.Rows) == 0 {
		return nil, nil
	}

	var rows []types.ScheduleRecord
	if err := json.Unmarshal(table.Rows, &rows); err != nil {
		return nil, fmt.Errorf("decode schedule rows: %w", err)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
