package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/config"
)

// PageHandler serves HTML pages rendered with Go templates.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
	jwtSecret []byte
}

// NewPageHandler creates a new page handler that loads templates from the
// pages directory.
func NewPageHandler(logger *common.Logger, devMode bool, jwtSecret []byte) *PageHandler {
	pagesDir := FindPagesDir()

	templates := template.Must(template.ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		devMode:   devMode,
		jwtSecret: jwtSecret,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// ServeLanding renders the public landing page. An already-authenticated
// visitor is sent straight to the management view.
func (h *PageHandler) ServeLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if loggedIn, _ := auth.IsLoggedIn(r, h.jwtSecret); loggedIn {
		http.Redirect(w, r, auth.ManagementRoute, http.StatusFound)
		return
	}

	h.render(w, "landing.html", map[string]interface{}{
		"Page":          "landing",
		"DevMode":       h.devMode,
		"LoggedIn":      false,
		"PortalVersion": config.GetVersion(),
	})
}

// ServeManagement renders the asset management page. Unauthenticated access
// redirects to the public landing page.
func (h *PageHandler) ServeManagement(w http.ResponseWriter, r *http.Request) {
	loggedIn, claims := auth.IsLoggedIn(r, h.jwtSecret)
	if !loggedIn {
		http.Redirect(w, r, auth.PublicRoute, http.StatusFound)
		return
	}

	var userID string
	if claims != nil {
		userID = claims.Sub
	}

	h.render(w, "asset_management.html", map[string]interface{}{
		"Page":          "asset-management",
		"DevMode":       h.devMode,
		"LoggedIn":      true,
		"UserID":        userID,
		"PortalVersion": config.GetVersion(),
	})
}

// render executes a template, logging failures.
func (h *PageHandler) render(w http.ResponseWriter, templateName string, data map[string]interface{}) {
	if err := h.templates.ExecuteTemplate(w, templateName, data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", templateName).Str("error", err.Error()).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	pagesDir := FindPagesDir()
	staticDir := filepath.Join(pagesDir, "static")

	path := r.URL.Path[len("/static/"):]
	fullPath := filepath.Join(staticDir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if len(absFullPath) < len(absStaticDir) || absFullPath[:len(absStaticDir)] != absStaticDir {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
