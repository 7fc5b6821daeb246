package handlers

import (
	"net/http"

	"github.com/Dosada05/checked/services"
)

// AdminHandler serves the admin analytics and security views.
type AdminHandler struct {
	analytics services.AnalyticsService
	security  services.SecurityService
}

func NewAdminHandler(analytics services.AnalyticsService, security services.SecurityService) *AdminHandler {
	return &AdminHandler{analytics: analytics, security: security}
}

func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, summary)
}

func (h *AdminHandler) UserGrowth(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	growth, err := h.analytics.UserGrowth(r.Context(), days)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, growth)
}

func (h *AdminHandler) TournamentActivity(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	activity, err := h.analytics.TournamentActivity(r.Context(), days)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, activity)
}

func (h *AdminHandler) PlayerLogins(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	logins, err := h.security.Logins(r.Context(), urlParam(r, "playerID"), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, logins)
}

func (h *AdminHandler) PlayerFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.security.Flags(r.Context(), urlParam(r, "playerID"), r.URL.Query().Get("status"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, flags)
}
