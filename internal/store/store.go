// Package store holds the portal's in-memory asset list.
package store

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
)

// backendAPI is the slice of the backend client the store mutates through.
type backendAPI interface {
	GetAssets(ctx context.Context) ([]models.Asset, error)
	AddAsset(ctx context.Context, req models.AddAssetRequest) error
	DeleteAllAssets(ctx context.Context) error
	DeleteAssetByID(ctx context.Context, assetID string) error
}

// AssetStore owns the current asset list. Single writer by convention: only
// the fetch/add/delete operations mutate it; everything else reads copies.
// On failure the list is left at its last-known state, never
// partially mutated.
type AssetStore struct {
	api    backendAPI
	logger *common.Logger

	mu     sync.RWMutex
	assets []models.Asset
}

// NewAssetStore creates an empty store backed by the given client.
func NewAssetStore(api backendAPI, logger *common.Logger) *AssetStore {
	return &AssetStore{
		api:    api,
		logger: logger,
	}
}

// FetchAll replaces the entire held list with the server response. Full
// replace, not merge.
func (s *AssetStore) FetchAll(ctx context.Context) error {
	assets, err := s.api.GetAssets(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error().Str("error", err.Error()).Msg("failed to fetch assets")
		}
		return err
	}

	s.mu.Lock()
	s.assets = assets
	s.mu.Unlock()
	return nil
}

// AddOne creates an asset server-side. The new record is not appended
// locally; the caller must re-run FetchAll to see it.
func (s *AssetStore) AddOne(ctx context.Context, req models.AddAssetRequest) error {
	if err := s.api.AddAsset(ctx, req); err != nil {
		if s.logger != nil {
			s.logger.Error().Str("error", err.Error()).Msg("failed to add asset")
		}
		return err
	}
	return nil
}

// DeleteAll calls the backend delete-all then clears the local list.
func (s *AssetStore) DeleteAll(ctx context.Context) error {
	if err := s.api.DeleteAllAssets(ctx); err != nil {
		if s.logger != nil {
			s.logger.Error().Str("error", err.Error()).Msg("failed to delete all assets")
		}
		return err
	}

	s.mu.Lock()
	s.assets = nil
	s.mu.Unlock()
	return nil
}

// DeleteByID calls the backend delete for one asset. The caller re-runs
// FetchAll afterward; the local list is not touched here.
func (s *AssetStore) DeleteByID(ctx context.Context, assetID string) error {
	if err := s.api.DeleteAssetByID(ctx, assetID); err != nil {
		if s.logger != nil {
			s.logger.Error().Str("error", err.Error()).Str("asset_id", assetID).Msg("failed to delete asset")
		}
		return err
	}
	return nil
}

// Assets returns a copy of the current list.
func (s *AssetStore) Assets() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// FindByID returns the asset with the given id from the current list.
func (s *AssetStore) FindByID(assetID string) (models.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.assets, func(a models.Asset) bool {
		return a.ID == assetID
	})
}
