package handlers

import (
	"net/http"

	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/config"
)

// VersionHandler reports build version information.
type VersionHandler struct {
	logger *common.Logger
}

// NewVersionHandler creates a new version handler.
func NewVersionHandler(logger *common.Logger) *VersionHandler {
	return &VersionHandler{logger: logger}
}

// ServeHTTP handles GET /api/version.
func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    config.GetVersion(),
		"build":      config.Build,
		"git_commit": config.GitCommit,
	})
}
