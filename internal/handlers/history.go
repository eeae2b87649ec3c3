package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
	"github.com/metaversal/asset-portal/internal/portfolio"
	"github.com/metaversal/asset-portal/internal/store"
)

// HistoryFetcher reads one asset's price time series.
type HistoryFetcher interface {
	GetAssetHistory(ctx context.Context, assetID string) ([]models.HistoryPoint, error)
}

// HistoryHandler serves the history-panel chart payload for one asset.
type HistoryHandler struct {
	logger    *common.Logger
	store     *store.AssetStore
	histories HistoryFetcher
	jwtSecret []byte

	// now is swappable for tests; the window presets measure backward
	// from wall-clock time at filter time.
	now func() time.Time
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(logger *common.Logger, s *store.AssetStore, hf HistoryFetcher, jwtSecret []byte) *HistoryHandler {
	return &HistoryHandler{
		logger:    logger,
		store:     s,
		histories: hf,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// Serve handles GET /api/assets/{id}/history?range={preset}. The P&L series
// is derived against the owning asset's current cost basis, so the asset
// must be present in the store (the panel is opened from the table).
func (h *HistoryHandler) Serve(w http.ResponseWriter, r *http.Request, assetID string) {
	if loggedIn, _ := auth.IsLoggedIn(r, h.jwtSecret); !loggedIn {
		WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	window, err := portfolio.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, ok := h.store.FindByID(assetID)
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown asset id")
		return
	}

	points, err := h.histories.GetAssetHistory(r.Context(), assetID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Str("error", err.Error()).Str("asset_id", assetID).Msg("failed to fetch asset history")
		}
		WriteError(w, http.StatusBadGateway, "failed to load asset history")
		return
	}

	chart := portfolio.BuildChart(asset, points, window, h.now())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"chart":  chart,
	})
}
