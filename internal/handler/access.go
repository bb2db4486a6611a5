package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/surtidora/api/internal/access"
	"github.com/surtidora/api/internal/middleware"
)

// AccessHandler lets the client ask which profile it has and whether a route
// class is open to it, so navigation can redirect before a request fails.
type AccessHandler struct {
	policy access.Policy
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(policy access.Policy) *AccessHandler {
	return &AccessHandler{policy: policy}
}

// RegisterRoutes registers access endpoints on the given Chi router.
// Expected to be mounted at /access; both endpoints are public.
func (h *AccessHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.Profile)
	r.Get("/authorize", h.Authorize)
}

type profileResponse struct {
	Profile  string           `json:"profile"`
	Home     string           `json:"home"`
	Identity *access.Identity `json:"identity,omitempty"`
}

// Profile handles GET /access/profile.
func (h *AccessHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id := middleware.ClaimsFromContext(r.Context()).Identity()
	profile := h.policy.ResolveProfile(id)
	writeJSON(w, http.StatusOK, profileResponse{
		Profile:  profile,
		Home:     h.policy.HomeRoute(profile),
		Identity: id,
	})
}

// Authorize handles GET /access/authorize?route=<class>.
func (h *AccessHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	class := r.URL.Query().Get("route")
	if class == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "route is required"})
		return
	}
	profile := h.policy.ResolveProfile(middleware.ClaimsFromContext(r.Context()).Identity())
	writeJSON(w, http.StatusOK, h.policy.Authorize(profile, class))
}
