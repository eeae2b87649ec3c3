package handlers

import (
	"context"
	"net/http"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
	"github.com/metaversal/asset-portal/internal/portfolio"
	"github.com/metaversal/asset-portal/internal/store"
	"github.com/shopspring/decimal"
)

// SnapshotFetcher reads the server-computed portfolio aggregate.
type SnapshotFetcher interface {
	GetPortfolio(ctx context.Context) (*models.PortfolioSnapshot, error)
}

// Backfiller triggers the backend's synthetic history generation.
type Backfiller interface {
	BackfillPriceData(ctx context.Context) error
}

// PortfolioHandler serves the summary panel data and the bulk portfolio
// operations. The snapshot is treated as opaque: it is passed through with
// only a display sign added, never derived client-side.
type PortfolioHandler struct {
	logger       *common.Logger
	store        *store.AssetStore
	snapshots    SnapshotFetcher
	backfiller   Backfiller
	recalculator Recalculator
	jwtSecret    []byte
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(logger *common.Logger, s *store.AssetStore, sf SnapshotFetcher, bf Backfiller, rc Recalculator, jwtSecret []byte) *PortfolioHandler {
	return &PortfolioHandler{
		logger:       logger,
		store:        s,
		snapshots:    sf,
		backfiller:   bf,
		recalculator: rc,
		jwtSecret:    jwtSecret,
	}
}

func (h *PortfolioHandler) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if loggedIn, _ := auth.IsLoggedIn(r, h.jwtSecret); !loggedIn {
		WriteError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}
	return true
}

// Snapshot handles GET /api/portfolio. last_updated is passed through so
// the page can show staleness after a failed recalculation.
func (h *PortfolioHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := h.snapshots.GetPortfolio(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Str("error", err.Error()).Msg("failed to fetch portfolio snapshot")
		}
		WriteError(w, http.StatusBadGateway, "failed to load portfolio data")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"total_basis":  formatMoneyString(snapshot.TotalBasis),
		"total_value":  formatMoneyString(snapshot.TotalValue),
		"pnl":          common.FormatMoney(snapshot.PnL),
		"pnl_sign":     portfolio.SignOf(decimal.NewFromFloat(snapshot.PnL)),
		"last_updated": snapshot.LastUpdated,
	})
}

// Backfill handles POST /api/portfolio/backfill: generate six months of
// synthetic history, recalculate, refetch. Opaque server-side work; the
// portal only awaits completion.
func (h *PortfolioHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.backfiller.BackfillPriceData(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to backfill price data")
		return
	}
	if err := h.recalculator.RecalculatePortfolio(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "backfill succeeded but recalculation failed")
		return
	}
	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "backfill succeeded but refetch failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Recalculate handles POST /api/portfolio/recalculate: explicit server-side
// snapshot recomputation, then refetch.
func (h *PortfolioHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.recalculator.RecalculatePortfolio(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to recalculate portfolio")
		return
	}
	if err := h.store.FetchAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "recalculated but refetch failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// formatMoneyString formats a backend decimal string as currency, passing
// malformed values through as zero (Number(x || 0) in the source).
func formatMoneyString(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.Zero
	}
	return common.FormatMoneyDecimal(d)
}
