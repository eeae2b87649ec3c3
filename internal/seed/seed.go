package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metaversal/asset-portal/internal/client"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
)

const (
	seedRetryAttempts = 3
	seedRetryDelay    = 2 * time.Second
	assetsFileName    = "import/assets.json"
)

// assetsFile is the JSON structure for the demo assets seed file.
type assetsFile struct {
	Assets []models.AddAssetRequest `json:"assets"`
}

// DevAssets seeds demo assets into the backend from import/assets.json.
// Non-fatal: if the backend is unreachable after retries, logs warning and returns.
func DevAssets(c *client.MetaversalClient, logger *common.Logger) {
	path := findAssetsFile()
	if path == "" {
		logger.Warn().Msg("seed: import/assets.json not found, skipping demo asset seeding")
		return
	}

	assets, err := loadAssetsFile(path)
	if err != nil {
		logger.Error().Str("error", err.Error()).Str("path", path).Msg("seed: failed to load assets file")
		return
	}

	if len(assets) == 0 {
		logger.Warn().Msg("seed: assets file is empty, skipping demo asset seeding")
		return
	}

	seedWithRetry(c, assets, logger)
}

// findAssetsFile searches for import/assets.json relative to the executable
// directory first, then falls back to the current working directory.
func findAssetsFile() string {
	// Try binary-relative path first
	if exe, err := os.Executable(); err == nil {
		binDir := filepath.Dir(exe)
		p := filepath.Join(binDir, assetsFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Fall back to CWD
	if _, err := os.Stat(assetsFileName); err == nil {
		return assetsFileName
	}

	return ""
}

// loadAssetsFile reads and parses the assets JSON file.
func loadAssetsFile(path string) ([]models.AddAssetRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var f assetsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	return f.Assets, nil
}

// seedWithRetry attempts to seed assets with retries.
func seedWithRetry(c *client.MetaversalClient, assets []models.AddAssetRequest, logger *common.Logger) {
	var err error
	for attempt := 1; attempt <= seedRetryAttempts; attempt++ {
		err = seedAll(c, assets, logger)
		if err == nil {
			logger.Info().Int("assets", len(assets)).Msg("seed: demo assets seeded successfully")
			return
		}
		logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", seedRetryAttempts).
			Str("error", err.Error()).
			Msg("seed: failed to seed assets, retrying")
		if attempt < seedRetryAttempts {
			time.Sleep(seedRetryDelay)
		}
	}

	logger.Warn().
		Int("attempts", seedRetryAttempts).
		Str("error", err.Error()).
		Msg("seed: failed to seed demo assets after retries, continuing without seeding")
}

// seedAll creates each asset, returning on first error.
func seedAll(c *client.MetaversalClient, assets []models.AddAssetRequest, logger *common.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid seed asset %s: %w", a.TokenDescription, err)
		}
		if err := c.AddAsset(ctx, a); err != nil {
			return fmt.Errorf("add %s: %w", a.TokenDescription, err)
		}
		if logger != nil {
			logger.Debug().Str("token", a.TokenDescription).Msg("seed: added demo asset")
		}
	}
	return nil
}
