// Package insight calls an external advisory service that produces a short
// credit review note for an order. The note is informational only: every
// failure path degrades to an empty string so the review flow never blocks
// on this dependency.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/frostline-scm/frostline/internal/credit"
	"github.com/frostline-scm/frostline/internal/order"
)

const (
	defaultTimeout = 5 * time.Second
	cacheTTL       = 10 * time.Minute
)

// Client fetches advisory notes over HTTP with a redis cache in front.
// Concurrent requests for the same order are collapsed to a single upstream
// call.
type Client struct {
	baseURL string
	http    *http.Client
	redis   *redis.Client
	logger  *slog.Logger
	group   singleflight.Group
}

// NewClient creates a client. The redis client may be nil, in which case
// caching is skipped.
func NewClient(baseURL string, rdb *redis.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		redis:   rdb,
		logger:  logger,
	}
}

type reviewRequest struct {
	OrderID         string  `json:"order_id"`
	OrderValue      float64 `json:"order_value"`
	CreditLimit     float64 `json:"credit_limit"`
	Outstanding     float64 `json:"outstanding"`
	Overdue         float64 `json:"overdue"`
	AvailableCredit float64 `json:"available_credit"`
}

type reviewResponse struct {
	Note string `json:"note"`
}

// Insight returns the advisory note for the order, or "" when the service is
// unreachable, responds badly, or the context is cancelled.
func (c *Client) Insight(ctx context.Context, o *order.Order, snap credit.Snapshot) string {
	if c.baseURL == "" {
		return ""
	}
	key := fmt.Sprintf("insight:review:%s:%d", o.ID, o.Version)

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			return cached
		}
		if err != redis.Nil {
			c.logger.Warn("insight cache read failed", slog.Any("error", err))
		}
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetch(ctx, o, snap)
	})
	if err != nil {
		c.logger.Warn("insight fetch failed",
			slog.String("order_id", o.ID.String()),
			slog.Any("error", err))
		return ""
	}
	note := result.(string)

	if c.redis != nil && note != "" {
		if err := c.redis.Set(ctx, key, note, cacheTTL).Err(); err != nil {
			c.logger.Warn("insight cache write failed", slog.Any("error", err))
		}
	}
	return note
}

func (c *Client) fetch(ctx context.Context, o *order.Order, snap credit.Snapshot) (string, error) {
	exp := credit.Evaluate(snap)
	payload, err := json.Marshal(reviewRequest{
		OrderID:         o.ID.String(),
		OrderValue:      o.PackedValue(),
		CreditLimit:     snap.CreditLimit,
		Outstanding:     snap.Outstanding,
		Overdue:         snap.Overdue,
		AvailableCredit: exp.AvailableCredit,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/credit-review", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("insight: unexpected status %d", resp.StatusCode)
	}

	var out reviewResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", err
	}
	return out.Note, nil
}
