package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quire/internal/api"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base       string
	token      string
	httpClient *http.Client
}

func newAPIClient(addr, token string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call daemon: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

// Ping checks daemon reachability.
func (c *apiClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/status", nil, nil)
}

func (c *apiClient) Status(ctx context.Context) (api.SchedulerStatus, error) {
	var status api.SchedulerStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) Stats(ctx context.Context) (api.QueueStats, error) {
	var stats api.QueueStats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}

func (c *apiClient) List(ctx context.Context, statuses []string) ([]api.QueueRecord, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		params := make([]string, 0, len(statuses))
		for _, status := range statuses {
			params = append(params, "status="+status)
		}
		path += "?" + strings.Join(params, "&")
	}
	var resp api.QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Describe returns nil without an error when the record does not exist.
func (c *apiClient) Describe(ctx context.Context, id int64) (*api.QueueRecord, error) {
	var resp api.QueueRecordResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/queue/%d", id), nil, &resp)
	if err != nil {
		if strings.Contains(err.Error(), "queue record not found") {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Record, nil
}

func (c *apiClient) Enqueue(ctx context.Context, req api.EnqueueRequest) (*api.QueueRecord, error) {
	var resp api.QueueRecordResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Record, nil
}

func (c *apiClient) RetryAll(ctx context.Context) (int64, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/retry", nil, &resp)
	return resp.Count, err
}

func (c *apiClient) Retry(ctx context.Context, id int64) (int64, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/queue/%d/retry", id), nil, &resp)
	return resp.Count, err
}

func (c *apiClient) Cancel(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/queue/%d/cancel", id), nil, nil)
}

func (c *apiClient) Skip(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/queue/%d/skip", id), nil, nil)
}

func (c *apiClient) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/queue/%d", id), nil, nil)
}

func (c *apiClient) Clear(ctx context.Context, scope api.ClearScope) (int64, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodDelete, "/api/queue?scope="+string(scope), nil, &resp)
	return resp.Count, err
}

func (c *apiClient) Sweep(ctx context.Context) (api.SweepResponse, error) {
	var resp api.SweepResponse
	err := c.do(ctx, http.MethodPost, "/api/sweep", nil, &resp)
	return resp, err
}
