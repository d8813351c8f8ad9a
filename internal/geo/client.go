// Package geo resolves road distances between a fulfilment facility and a
// delivery destination. Distance is display-only metadata on the logistics
// record, so the client degrades to zero rather than failing the transition.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 3 * time.Second

// Client queries an external routing service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. An empty baseURL disables lookups.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type distanceResponse struct {
	DistanceKm float64 `json:"distance_km"`
}

// DistanceKm returns the road distance in kilometres, or 0 when the service
// is disabled or unreachable.
func (c *Client) DistanceKm(ctx context.Context, fromFacility, destination string) float64 {
	if c.baseURL == "" || fromFacility == "" || destination == "" {
		return 0
	}

	q := url.Values{}
	q.Set("from", fromFacility)
	q.Set("to", destination)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/distance?"+q.Encode(), nil)
	if err != nil {
		return 0
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("distance lookup failed", slog.Any("error", err))
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		c.logger.Warn("distance lookup failed", slog.Any("error", fmt.Errorf("status %d", resp.StatusCode)))
		return 0
	}

	var out distanceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err != nil {
		c.logger.Warn("distance lookup failed", slog.Any("error", err))
		return 0
	}
	if out.DistanceKm < 0 {
		return 0
	}
	return out.DistanceKm
}
