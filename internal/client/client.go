// Package client provides a REST client for the recorder server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is an HTTP client for the recorder server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses RECORDER_SERVER_URL env var or defaults to localhost:8080.
// Timeout can be configured via RECORDER_CLIENT_TIMEOUT env var.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("RECORDER_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 30 * time.Second
	if t := os.Getenv("RECORDER_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the error payload the server returns on failures.
type apiError struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, apiErr.Detail)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// TYPES (matching server JSON)
// =============================================================================

// RetryInfo describes a job's automatic-retry state.
type RetryInfo struct {
	AutoRetryAttempt int        `json:"auto_retry_attempt"`
	AutoRetryAt      *time.Time `json:"auto_retry_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
}

// JobView is one job's status as reported by the server.
type JobView struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Retry         RetryInfo  `json:"retry"`
	IsManualRetry bool       `json:"is_manual_retry"`
	Position      int        `json:"position"`
	Result        any        `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// JobSummary is one queued job in a queue snapshot.
type JobSummary struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	IsManualRetry bool      `json:"is_manual_retry"`
}

// QueueSnapshot is the monitoring view of the analysis queue.
type QueueSnapshot struct {
	QueueSize  int          `json:"queue_size"`
	Processing bool         `json:"processing"`
	CurrentJob string       `json:"current_job,omitempty"`
	Scheduled  int          `json:"scheduled_retries"`
	Jobs       []JobSummary `json:"jobs"`
}

// OperationStats holds metrics for a single operation type.
type OperationStats struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// ServerStats holds in-memory runtime statistics (resets on server restart).
type ServerStats struct {
	UptimeSeconds     float64         `json:"uptime_seconds"`
	AnalysisSuccesses int64           `json:"analysis_successes"`
	AnalysisFailures  int64           `json:"analysis_failures"`
	AutoRetries       int64           `json:"auto_retries"`
	ManualRetries     int64           `json:"manual_retries"`
	Uploads           int64           `json:"uploads"`
	Analysis          *OperationStats `json:"analysis,omitempty"`
	QueueWait         *OperationStats `json:"queue_wait,omitempty"`
	DBQuery           *OperationStats `json:"db_query,omitempty"`
	Upload            *OperationStats `json:"upload,omitempty"`
}

// CreatedSession is the response to a create-session request.
type CreatedSession struct {
	OK         bool   `json:"ok"`
	Token      string `json:"token"`
	SessionURL string `json:"session_url"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateSession creates a pending interview session and returns its token.
func (c *Client) CreateSession(ctx context.Context, intervieweeName, interviewerID string) (*CreatedSession, error) {
	var result CreatedSession
	err := c.do(ctx, http.MethodPost, "/api/interviewer/create-session", map[string]string{
		"interviewee_name": intervieweeName,
		"interviewer_id":   interviewerID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob retrieves one job's status by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobView, error) {
	var result JobView
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetQueue retrieves the current queue snapshot.
func (c *Client) GetQueue(ctx context.Context) (*QueueSnapshot, error) {
	var result QueueSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RetryJob triggers a manual retry for one question's analysis.
func (c *Client) RetryJob(ctx context.Context, token, folder string, questionIndex int) error {
	return c.do(ctx, http.MethodPost, "/api/retry-processing", map[string]any{
		"token":         token,
		"folder":        folder,
		"questionIndex": questionIndex,
	}, nil)
}

// GetServerStats returns in-memory runtime statistics.
func (c *Client) GetServerStats(ctx context.Context) (*ServerStats, error) {
	var result ServerStats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// WatchQueue subscribes to queue snapshots over WebSocket. The onSnapshot
// callback is invoked for each push. Return an error from onSnapshot to
// abort the watch.
func (c *Client) WatchQueue(ctx context.Context, onSnapshot func(QueueSnapshot) error) error {
	wsURL := c.baseURL + "/api/queue/watch"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	// Close the connection when the context is cancelled so the blocking
	// read below returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var snap QueueSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := onSnapshot(snap); err != nil {
			return err
		}
	}
}
