package handlers

import (
	"net/http"
	"net/url"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
)

// AuthHandler bridges the identity provider's browser flow to the gate:
// login redirect out, token callback in, logout.
type AuthHandler struct {
	logger      *common.Logger
	gate        *auth.Gate
	providerURL string
	appID       string
	callbackURL string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(logger *common.Logger, gate *auth.Gate, providerURL, appID, callbackURL string) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		gate:        gate,
		providerURL: providerURL,
		appID:       appID,
		callbackURL: callbackURL,
	}
}

// HandleLogin redirects to the identity provider's hosted login.
// GET /auth/login -> 302 to {providerURL}/login?app_id=...&callback=...
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	redirectURL := h.providerURL + "/login?app_id=" + url.QueryEscape(h.appID) +
		"&callback=" + url.QueryEscape(h.callbackURL)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleCallback handles the identity provider's return leg.
// GET /auth/callback?token=<provider token> -> exchange for an application
// credential, set the portal session cookie, follow the gate's redirect.
// Exchange failure is non-fatal: the user lands back on the public page
// with an error flag and may retry.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/?auth=missing_token", http.StatusFound)
		return
	}

	decision := h.gate.Check(r.Context(), auth.ProviderStatus{
		Ready:         true,
		Authenticated: true,
		Token:         token,
	}, auth.PublicRoute)

	if !decision.LoggedIn {
		// Logged by the gate; no forced navigation beyond returning to
		// the landing page the user came from.
		http.Redirect(w, r, "/?auth=failed", http.StatusFound)
		return
	}

	auth.SetSessionCookie(w, h.gate.Credential())

	target := decision.Redirect
	if target == "" {
		target = auth.ManagementRoute
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleLogout clears the session and returns to the landing page.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	decision := h.gate.Logout()
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, decision.Redirect, http.StatusFound)
}

// HandleSession reports the gate state for the page scripts.
// GET /api/session -> { state, logged_in }.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	state := h.gate.State()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state":     string(state),
		"logged_in": state == auth.StateAuthenticated,
	})
}
