package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metaversal/asset-portal/internal/models"
	"github.com/metaversal/asset-portal/internal/store"
)

// fakePortfolioBackend scripts the snapshot and bulk portfolio operations.
type fakePortfolioBackend struct {
	fakeBackend
	snapshot     *models.PortfolioSnapshot
	failSnapshot bool
	backfills    int
	failBackfill bool
}

func (f *fakePortfolioBackend) GetPortfolio(context.Context) (*models.PortfolioSnapshot, error) {
	if f.failSnapshot {
		return nil, fmt.Errorf("backend down")
	}
	return f.snapshot, nil
}

func (f *fakePortfolioBackend) BackfillPriceData(context.Context) error {
	f.backfills++
	if f.failBackfill {
		return fmt.Errorf("backend down")
	}
	return nil
}

func newPortfolioFixture(backend *fakePortfolioBackend) *PortfolioHandler {
	s := store.NewAssetStore(&backend.fakeBackend, nil)
	return NewPortfolioHandler(nil, s, backend, backend, backend, testSecret)
}

func TestPortfolioSnapshot_RequiresSession(t *testing.T) {
	h := newPortfolioFixture(&fakePortfolioBackend{})

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	h.Snapshot(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestPortfolioSnapshot_PassesThroughFigures(t *testing.T) {
	updated := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	backend := &fakePortfolioBackend{snapshot: &models.PortfolioSnapshot{
		TotalValue:  "300.00",
		TotalBasis:  "250.00",
		PnL:         50,
		LastUpdated: updated,
	}}
	h := newPortfolioFixture(backend)

	req := withSession(t, httptest.NewRequest("GET", "/api/portfolio", nil), testSecret)
	w := httptest.NewRecorder()
	h.Snapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["total_value"] != "$300.00" || body["total_basis"] != "$250.00" {
		t.Errorf("unexpected totals %v", body)
	}
	if body["pnl"] != "$50.00" || body["pnl_sign"] != "positive" {
		t.Errorf("unexpected pnl %v / %v", body["pnl"], body["pnl_sign"])
	}
	if body["last_updated"] == nil {
		t.Error("expected last_updated passthrough")
	}
}

func TestPortfolioSnapshot_BackendFailure(t *testing.T) {
	h := newPortfolioFixture(&fakePortfolioBackend{failSnapshot: true})

	req := withSession(t, httptest.NewRequest("GET", "/api/portfolio", nil), testSecret)
	w := httptest.NewRecorder()
	h.Snapshot(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestBackfill_SequencesBackfillRecalcRefetch(t *testing.T) {
	backend := &fakePortfolioBackend{}
	h := newPortfolioFixture(backend)

	req := withSession(t, httptest.NewRequest("POST", "/api/portfolio/backfill", nil), testSecret)
	w := httptest.NewRecorder()
	h.Backfill(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if backend.backfills != 1 {
		t.Errorf("expected 1 backfill, got %d", backend.backfills)
	}
	if backend.recalcCalls != 1 {
		t.Errorf("expected 1 recalculation, got %d", backend.recalcCalls)
	}
}

func TestBackfill_FailureStopsSequence(t *testing.T) {
	backend := &fakePortfolioBackend{failBackfill: true}
	h := newPortfolioFixture(backend)

	req := withSession(t, httptest.NewRequest("POST", "/api/portfolio/backfill", nil), testSecret)
	w := httptest.NewRecorder()
	h.Backfill(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	if backend.recalcCalls != 0 {
		t.Errorf("expected no recalculation after failed backfill, got %d", backend.recalcCalls)
	}
}

func TestRecalculate_RejectsGET(t *testing.T) {
	h := newPortfolioFixture(&fakePortfolioBackend{})

	req := withSession(t, httptest.NewRequest("GET", "/api/portfolio/recalculate", nil), testSecret)
	w := httptest.NewRecorder()
	h.Recalculate(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRecalculate_OK(t *testing.T) {
	backend := &fakePortfolioBackend{}
	h := newPortfolioFixture(backend)

	req := withSession(t, httptest.NewRequest("POST", "/api/portfolio/recalculate", nil), testSecret)
	w := httptest.NewRecorder()
	h.Recalculate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if backend.recalcCalls != 1 {
		t.Errorf("expected 1 recalculation, got %d", backend.recalcCalls)
	}
}
