// Package client wraps outbound HTTP calls to the Metaversal backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/metaversal/asset-portal/internal/models"
)

// MetaversalClient communicates with the Metaversal backend REST API.
// Authenticated calls attach a bearer token when the /auth exchange issued a
// development JWT; otherwise the backend's session cookie (captured in the
// cookie jar at exchange time) provides ambient credential transport.
// The client does not retry, does not cache, and does not classify errors.
type MetaversalClient struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	developmentJWT string
}

// NewMetaversalClient creates a new client targeting the given backend URL.
func NewMetaversalClient(baseURL string, timeout time.Duration) *MetaversalClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &MetaversalClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// DevelopmentJWT returns the bearer credential issued by the last successful
// exchange, or empty when running on ambient cookie transport.
func (c *MetaversalClient) DevelopmentJWT() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.developmentJWT
}

// Authenticate exchanges an identity-provider token for an application
// session. POST /auth -> { developmentJwt? }. A missing provider token is
// rejected at the boundary.
func (c *MetaversalClient) Authenticate(ctx context.Context, providerToken string) (*models.AuthResponse, error) {
	if providerToken == "" {
		return nil, fmt.Errorf("missing provider token on authenticate request")
	}

	body, err := c.do(ctx, http.MethodPost, "/auth", map[string]string{"privy_token": providerToken})
	if err != nil {
		return nil, err
	}

	var result models.AuthResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.DevelopmentJWT != "" {
		c.mu.Lock()
		c.developmentJWT = result.DevelopmentJWT
		c.mu.Unlock()
	}

	return &result, nil
}

// GetAssets fetches the asset list. GET /assets -> [Asset].
func (c *MetaversalClient) GetAssets(ctx context.Context) ([]models.Asset, error) {
	body, err := c.do(ctx, http.MethodGet, "/assets", nil)
	if err != nil {
		return nil, err
	}

	var assets []models.Asset
	if err := json.Unmarshal(body, &assets); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return assets, nil
}

// AddAsset creates an asset server-side. POST /assets. The response record
// is not applied locally; callers refetch to see it.
func (c *MetaversalClient) AddAsset(ctx context.Context, req models.AddAssetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/assets", req)
	return err
}

// DeleteAllAssets removes every asset. DELETE /assets.
func (c *MetaversalClient) DeleteAllAssets(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/assets", nil)
	return err
}

// DeleteAssetByID removes one asset. DELETE /assets/{id}.
func (c *MetaversalClient) DeleteAssetByID(ctx context.Context, assetID string) error {
	if assetID == "" {
		return fmt.Errorf("missing asset id on delete request")
	}
	_, err := c.do(ctx, http.MethodDelete, "/assets/"+assetID, nil)
	return err
}

// GetAssetHistory fetches the price time series for one asset.
// GET /assets/{id}/history -> [{created_at, price}].
func (c *MetaversalClient) GetAssetHistory(ctx context.Context, assetID string) ([]models.HistoryPoint, error) {
	if assetID == "" {
		return nil, fmt.Errorf("missing asset id on history request")
	}

	body, err := c.do(ctx, http.MethodGet, "/assets/"+assetID+"/history", nil)
	if err != nil {
		return nil, err
	}

	var points []models.HistoryPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return points, nil
}

// GetPortfolio fetches the aggregate snapshot. GET /portfolio.
func (c *MetaversalClient) GetPortfolio(ctx context.Context) (*models.PortfolioSnapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/portfolio", nil)
	if err != nil {
		return nil, err
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &snapshot, nil
}

// BackfillPriceData asks the backend to generate synthetic price history.
// POST /portfolio/backfill-price-data.
func (c *MetaversalClient) BackfillPriceData(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/portfolio/backfill-price-data", struct{}{})
	return err
}

// UpdateDailyPrices asks the backend to apply a daily price tick.
// POST /assets/update-prices.
func (c *MetaversalClient) UpdateDailyPrices(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/assets/update-prices", struct{}{})
	return err
}

// RecalculatePortfolio asks the backend to recompute the snapshot from
// current assets. POST /portfolio/recalculate.
func (c *MetaversalClient) RecalculatePortfolio(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/portfolio/recalculate", struct{}{})
	return err
}

// do performs one request and returns the response body. Any non-2xx
// outcome is an error; the caller decides what to do with it.
func (c *MetaversalClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if jwt := c.DevelopmentJWT(); jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend returned %d for %s %s: %s", resp.StatusCode, method, path, string(body))
	}

	return body, nil
}
