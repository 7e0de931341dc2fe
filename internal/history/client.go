// Package history implements the one-shot historical candle fetch against
// the upstream price service.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// Client fetches historical points and symbol matches over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

// NewClient creates a new history client
func NewClient(cfg *config.UpstreamConfig, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger.WithField("component", "history"),
	}
}

// FetchHistory fetches historical points for a symbol over the resolved
// period/interval. Symbols containing "/" are percent-encoded for the
// request path. The result is unsorted; callers reconcile before display.
// A backend returning zero points yields an empty slice, not an error.
func (c *Client) FetchHistory(ctx context.Context, symbol, period, interval string) ([]models.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/history/%s?period=%s&interval=%s",
		c.baseURL,
		url.PathEscape(symbol),
		url.QueryEscape(period),
		url.QueryEscape(interval),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request returned status %d", resp.StatusCode)
	}

	var points []models.PricePoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"period":   period,
		"interval": interval,
		"points":   len(points),
	}).Debug("Fetched history")

	return points, nil
}

// Search queries the upstream autocomplete endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var matches []models.SymbolMatch
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return matches, nil
}
