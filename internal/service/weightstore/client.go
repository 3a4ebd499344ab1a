// Package weightstore is the REST client for the external model-weight
// store. Weights are opaque serialized parameters keyed by (user,
// symbol); absence is a valid state, not a fault.
package weightstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	domrepo "TradeForge/internal/domain/repository"
	applogger "TradeForge/pkg/logger"
)

// Client talks to the weight-store HTTP API.
type Client struct {
	http *resty.Client
	l    *applogger.Logger
}

var _ domrepo.WeightStore = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, l *applogger.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: rc, l: l}
}

// Load fetches the serialized weights, mapping 404 to
// ErrModelUnavailable so callers can fall back to the rule-based path.
func (c *Client) Load(ctx context.Context, userID, symbol string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/v1/weights/%s/%s", userID, symbol))
	if err != nil {
		return nil, fmt.Errorf("weight store get: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domrepo.ErrModelUnavailable
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("weight store get %s/%s: status %d", userID, symbol, resp.StatusCode())
	}
	return resp.Body(), nil
}

type savePayload struct {
	Weights json.RawMessage `json:"weights"`
	Meta    map[string]any  `json:"meta,omitempty"`
}

// Save uploads retrained weights; the store bumps the stored version.
func (c *Client) Save(ctx context.Context, userID, symbol string, weights []byte, meta map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(savePayload{Weights: weights, Meta: meta}).
		Put(fmt.Sprintf("/v1/weights/%s/%s", userID, symbol))
	if err != nil {
		return fmt.Errorf("weight store put: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("weight store put %s/%s: status %d", userID, symbol, resp.StatusCode())
	}

	c.l.Info("model weights saved",
		applogger.String("user", userID),
		applogger.String("symbol", symbol),
		applogger.Int("bytes", len(weights)),
	)
	return nil
}
