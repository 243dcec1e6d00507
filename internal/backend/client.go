package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xca-bot/xcaboard/internal/model"
)

const (
	// DefaultTimeout bounds every one-shot request.
	DefaultTimeout = 5 * time.Second
	// DefaultStreamRetry is the fixed wait between reconnect attempts after
	// an event stream drops.
	DefaultStreamRetry = 5 * time.Second
)

// ActionResult is the {success, message} acknowledgement the backend returns
// from mutating endpoints.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client talks to the monitoring backend's REST and event stream API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	streamRetry time.Duration

	// streamClient carries no Timeout: stream connections are long-lived
	// and are torn down through context cancellation instead.
	streamClient *http.Client

	newIdempotencyKey func() string
}

// NewClient builds a client for the backend at baseURL. A non-positive
// timeout or retry delay falls back to the package default.
func NewClient(baseURL string, timeout, streamRetry time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if streamRetry <= 0 {
		streamRetry = DefaultStreamRetry
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout:           timeout,
		streamRetry:       streamRetry,
		streamClient:      &http.Client{},
		newIdempotencyKey: uuid.NewString,
	}
}

// BaseURL returns the configured backend address, as used in error messages.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request with the client timeout applied and decodes a JSON
// response into out when out is non-nil. Mutating requests carry a fresh
// X-Idempotency-Key so an impatient double-submit can be collapsed
// server-side.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Idempotency-Key", c.newIdempotencyKey())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readDetail pulls the message out of an error body. The backend usually
// answers {"detail": ...}, some error paths use {"error": ...}; anything
// else is kept as raw text.
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
		ErrMsg string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.ErrMsg != "" {
			return payload.ErrMsg
		}
	}
	return strings.TrimSpace(string(b))
}

// Status retrieves the current monitoring status.
func (c *Client) Status(ctx context.Context) (*model.MonitoringStatus, error) {
	var status model.MonitoringStatus
	if err := c.do(ctx, "fetch status", http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Start begins monitoring.
func (c *Client) Start(ctx context.Context) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "start monitoring", http.MethodPost, "/start", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stop halts monitoring.
func (c *Client) Stop(ctx context.Context) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "stop monitoring", http.MethodPost, "/stop", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckNow triggers an immediate check outside the regular schedule.
func (c *Client) CheckNow(ctx context.Context) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "trigger check", http.MethodPost, "/check", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Matches fetches up to limit recent matches, newest first, along with the
// total number of matches the backend has stored.
func (c *Client) Matches(ctx context.Context, limit int) ([]model.Match, int, error) {
	path := "/matches"
	if limit > 0 {
		path = fmt.Sprintf("/matches?limit=%d", limit)
	}

	var result struct {
		Matches []model.Match `json:"matches"`
		Total   int           `json:"total"`
	}
	if err := c.do(ctx, "fetch matches", http.MethodGet, path, nil, &result); err != nil {
		return nil, 0, err
	}
	return result.Matches, result.Total, nil
}

// Config retrieves the full backend configuration. Secrets come back masked.
func (c *Client) Config(ctx context.Context) (*model.AppConfig, error) {
	var cfg model.AppConfig
	if err := c.do(ctx, "fetch config", http.MethodGet, "/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig replaces the backend configuration wholesale. There are no
// partial updates; callers send back the complete document.
func (c *Client) UpdateConfig(ctx context.Context, cfg *model.AppConfig) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "update config", http.MethodPost, "/config", cfg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddDestination registers an extra Telegram forwarding destination.
func (c *Client) AddDestination(ctx context.Context, dest model.TelegramDestination) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "add destination", http.MethodPost, "/telegram/destinations", dest, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveDestination deletes a forwarding destination by chat id.
func (c *Client) RemoveDestination(ctx context.Context, chatID string) (*ActionResult, error) {
	path := "/telegram/destinations/" + url.PathEscape(chatID)
	var result ActionResult
	if err := c.do(ctx, "remove destination", http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestDestination asks the backend to send a test message to one destination.
func (c *Client) TestDestination(ctx context.Context, chatID string) (*ActionResult, error) {
	path := fmt.Sprintf("/telegram/destinations/%s/test", url.PathEscape(chatID))
	var result ActionResult
	if err := c.do(ctx, "test destination", http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Users retrieves the monitored usernames.
func (c *Client) Users(ctx context.Context) ([]string, error) {
	var users []string
	if err := c.do(ctx, "fetch users", http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUsers replaces the monitored username list.
func (c *Client) UpdateUsers(ctx context.Context, usernames []string) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "update users", http.MethodPost, "/users", usernames, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Patterns retrieves the regex patterns applied to tweet text.
func (c *Client) Patterns(ctx context.Context) ([]string, error) {
	var patterns []string
	if err := c.do(ctx, "fetch patterns", http.MethodGet, "/patterns", nil, &patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// UpdatePatterns replaces the regex pattern list.
func (c *Client) UpdatePatterns(ctx context.Context, patterns []string) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "update patterns", http.MethodPost, "/patterns", patterns, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Keywords retrieves the plain-text keywords applied to tweet text.
func (c *Client) Keywords(ctx context.Context) ([]string, error) {
	var keywords []string
	if err := c.do(ctx, "fetch keywords", http.MethodGet, "/keywords", nil, &keywords); err != nil {
		return nil, err
	}
	return keywords, nil
}

// UpdateKeywords replaces the keyword list.
func (c *Client) UpdateKeywords(ctx context.Context, keywords []string) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "update keywords", http.MethodPost, "/keywords", keywords, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logs fetches up to limit recent log lines, oldest first.
func (c *Client) Logs(ctx context.Context, limit int) ([]string, error) {
	path := "/logs"
	if limit > 0 {
		path = fmt.Sprintf("/logs?limit=%d", limit)
	}

	var lines []string
	if err := c.do(ctx, "fetch logs", http.MethodGet, path, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// ClearLogs empties the backend's log buffer and file.
func (c *Client) ClearLogs(ctx context.Context) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "clear logs", http.MethodPost, "/logs/clear", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadLogs fetches the raw log file.
func (c *Client) DownloadLogs(ctx context.Context) ([]byte, error) {
	const op = "download logs"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/logs/download", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return b, nil
}

// ExportMatches asks the backend to write its match history to a CSV file.
// An empty filename keeps the backend's default.
func (c *Client) ExportMatches(ctx context.Context, filename string) (*ActionResult, error) {
	path := "/export"
	if filename != "" {
		path = "/export?filename=" + url.QueryEscape(filename)
	}

	var result ActionResult
	if err := c.do(ctx, "export matches", http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cleanup compacts the backend's match storage.
func (c *Client) Cleanup(ctx context.Context) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, "cleanup storage", http.MethodPost, "/cleanup", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
