// Package gbmwave provides a minimal Go SDK for talking to a running
// gbm-server session over its HTTP JSON API.
package gbmwave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gbmwave/internal/domain"
)

// Client talks to a gbm-server's HTTP session API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client against baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot fetches the session's most recently published Snapshot.
func (c *Client) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := c.getJSON(ctx, "/api/v1/snapshot", &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("Snapshot: %w", err)
	}
	return snap, nil
}

// Zones fetches the reversal zones from the most recent snapshot.
func (c *Client) Zones(ctx context.Context) ([]domain.Zone, error) {
	var zones []domain.Zone
	if err := c.getJSON(ctx, "/api/v1/zones", &zones); err != nil {
		return nil, fmt.Errorf("Zones: %w", err)
	}
	return zones, nil
}

// Healthy reports whether the session has produced at least one snapshot.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false, fmt.Errorf("Healthy: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("Healthy: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
