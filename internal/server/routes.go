package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page routes (HTML templates)
	mux.HandleFunc("/", s.app.PageHandler.ServeLanding)
	mux.HandleFunc("/asset-management", s.app.PageHandler.ServeManagement)

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// Identity provider flow
	mux.HandleFunc("/auth/login", s.app.AuthHandler.HandleLogin)
	mux.HandleFunc("/auth/callback", s.app.AuthHandler.HandleCallback)
	mux.HandleFunc("/auth/logout", s.app.AuthHandler.HandleLogout)

	// API routes
	mux.HandleFunc("/api/session", s.app.AuthHandler.HandleSession)
	mux.HandleFunc("/api/assets", s.handleAssetsCollection)
	mux.HandleFunc("/api/assets/", s.handleAssetsSubtree)
	mux.HandleFunc("/api/portfolio", s.app.PortfolioHandler.Snapshot)
	mux.HandleFunc("/api/portfolio/backfill", s.app.PortfolioHandler.Backfill)
	mux.HandleFunc("/api/portfolio/recalculate", s.app.PortfolioHandler.Recalculate)
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleAssetsCollection dispatches /api/assets by method.
func (s *Server) handleAssetsCollection(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.AssetsHandler.List,
		s.app.AssetsHandler.Add,
		s.app.AssetsHandler.DeleteAll,
	)
}

// handleAssetsSubtree dispatches paths under /api/assets/:
//
//	POST   /api/assets/update-prices
//	GET    /api/assets/{id}/history
//	DELETE /api/assets/{id}
func (s *Server) handleAssetsSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	if rest == "" {
		s.handleNotFound(w, r)
		return
	}

	if rest == "update-prices" {
		s.app.AssetsHandler.UpdatePrices(w, r)
		return
	}

	if assetID, ok := strings.CutSuffix(rest, "/history"); ok {
		if assetID == "" || strings.Contains(assetID, "/") {
			s.handleNotFound(w, r)
			return
		}
		s.app.HistoryHandler.Serve(w, r, assetID)
		return
	}

	if strings.Contains(rest, "/") {
		s.handleNotFound(w, r)
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.AssetsHandler.DeleteOne(w, r, rest)
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
