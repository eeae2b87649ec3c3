package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
	"github.com/metaversal/asset-portal/internal/portfolio"
	"github.com/metaversal/asset-portal/internal/store"
)

// Recalculator triggers the backend's snapshot recomputation.
type Recalculator interface {
	RecalculatePortfolio(ctx context.Context) error
}

// PriceUpdater triggers the backend's daily price tick.
type PriceUpdater interface {
	UpdateDailyPrices(ctx context.Context) error
}

// addAssetBody is the portal-side add payload: either a preset for a random
// asset or the custom form fields.
type addAssetBody struct {
	Preset string `json:"preset,omitempty"`
	models.AddAssetRequest
}

// AssetsHandler serves the asset list and its mutations. Every mutation
// follows the same sequence: mutate, refetch the full list, and (where the
// source behavior did) trigger a backend recalculation. The page script
// re-fetches the portfolio snapshot after any mutation response.
type AssetsHandler struct {
	logger       *common.Logger
	store        *store.AssetStore
	recalculator Recalculator
	priceUpdater PriceUpdater
	jwtSecret    []byte
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(logger *common.Logger, s *store.AssetStore, rc Recalculator, pu PriceUpdater, jwtSecret []byte) *AssetsHandler {
	return &AssetsHandler{
		logger:       logger,
		store:        s,
		recalculator: rc,
		priceUpdater: pu,
		jwtSecret:    jwtSecret,
	}
}

// requireSession guards the API: JSON 401 instead of a page redirect.
func (h *AssetsHandler) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if loggedIn, _ := auth.IsLoggedIn(r, h.jwtSecret); !loggedIn {
		WriteError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}
	return true
}

// List handles GET /api/assets: refetch from the backend and return the
// computed table rows.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to fetch assets")
		return
	}

	h.writeRows(w, map[string]interface{}{})
}

// Add handles POST /api/assets: create (preset or custom), then refetch.
// The created record comes from the refetch, never from the request payload.
func (h *AssetsHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	var body addAssetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := body.AddAssetRequest
	if body.Preset != "" {
		var err error
		req, err = randomAssetRequest(body.Preset)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.AddOne(r.Context(), req); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to add asset")
		return
	}
	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "asset added but refetch failed")
		return
	}

	h.writeRows(w, map[string]interface{}{})
}

// DeleteAll handles DELETE /api/assets: backend delete-all, clear the local
// list, then a separate recalculation call. The two calls are not atomic; a
// recalculation failure leaves the snapshot stale and is reported so the
// page can prompt a manual recalculation.
func (h *AssetsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}

	if err := h.store.DeleteAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to delete assets")
		return
	}

	recalculated := true
	if err := h.recalculator.RecalculatePortfolio(r.Context()); err != nil {
		recalculated = false
		if h.logger != nil {
			h.logger.Warn().Str("error", err.Error()).Msg("recalculation after delete-all failed, snapshot is stale")
		}
	}

	h.writeRows(w, map[string]interface{}{"recalculated": recalculated})
}

// DeleteOne handles DELETE /api/assets/{id}: backend delete, refetch, then
// recalculation.
func (h *AssetsHandler) DeleteOne(w http.ResponseWriter, r *http.Request, assetID string) {
	if !h.requireSession(w, r) {
		return
	}

	if assetID == "" {
		WriteError(w, http.StatusBadRequest, "missing asset id")
		return
	}

	if err := h.store.DeleteByID(r.Context(), assetID); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to delete asset")
		return
	}
	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "asset deleted but refetch failed")
		return
	}

	recalculated := true
	if err := h.recalculator.RecalculatePortfolio(r.Context()); err != nil {
		recalculated = false
		if h.logger != nil {
			h.logger.Warn().Str("error", err.Error()).Str("asset_id", assetID).Msg("recalculation after delete failed, snapshot is stale")
		}
	}

	h.writeRows(w, map[string]interface{}{"recalculated": recalculated})
}

// UpdatePrices handles POST /api/assets/update-prices: backend daily tick,
// then refetch.
func (h *AssetsHandler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.priceUpdater.UpdateDailyPrices(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to update prices")
		return
	}
	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "prices updated but refetch failed")
		return
	}

	h.writeRows(w, map[string]interface{}{})
}

// writeRows responds with the current table rows plus any extra fields.
func (h *AssetsHandler) writeRows(w http.ResponseWriter, extra map[string]interface{}) {
	rows := portfolio.BuildRows(h.store.Assets())
	payload := map[string]interface{}{
		"status": "ok",
		"assets": rows,
		"count":  len(rows),
	}
	for k, v := range extra {
		payload[k] = v
	}
	WriteJSON(w, http.StatusOK, payload)
}

// randomAssetRequest builds the demo payloads the management page offers.
func randomAssetRequest(preset string) (models.AddAssetRequest, error) {
	switch preset {
	case "erc20-random":
		quantity := float64(rand.IntN(10000) + 1)
		costBasis := math.Round((rand.Float64()*20+1)*100) / 100
		return models.AddAssetRequest{
			TokenDescription:     "Random ERC-20 token",
			AssetType:            models.AssetTypeERC20,
			SmartContractAddress: randomContractAddress(),
			Quantity:             &quantity,
			CostBasis:            &costBasis,
		}, nil
	case "erc721-random":
		costBasis := math.Round((rand.Float64()*10000+1)*100) / 100
		return models.AddAssetRequest{
			TokenDescription:     "Random ERC-721 token",
			AssetType:            models.AssetTypeERC721,
			SmartContractAddress: randomContractAddress(),
			TokenID:              fmt.Sprintf("%d", rand.IntN(10000)),
			CostBasis:            &costBasis,
		}, nil
	default:
		return models.AddAssetRequest{}, fmt.Errorf("unknown preset %q", preset)
	}
}

// randomContractAddress generates a 0x-prefixed 40-hex-char address.
func randomContractAddress() string {
	const hexChars = "0123456789abcdef"
	addr := make([]byte, 42)
	addr[0], addr[1] = '0', 'x'
	for i := 2; i < len(addr); i++ {
		addr[i] = hexChars[rand.IntN(len(hexChars))]
	}
	return string(addr)
}
