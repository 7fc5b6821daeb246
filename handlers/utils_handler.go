package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
	"github.com/Dosada05/checked/utils"
)

// UtilsHandler serves reference data and public homepage figures.
type UtilsHandler struct {
	catalog services.CatalogService
}

func NewUtilsHandler(catalog services.CatalogService) *UtilsHandler {
	return &UtilsHandler{catalog: catalog}
}

func (h *UtilsHandler) Counties(w http.ResponseWriter, r *http.Request) {
	counties := append([]string(nil), utils.Counties...)
	sort.Strings(counties)
	respond(w, r, http.StatusOK, counties)
}

func (h *UtilsHandler) Regions(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, utils.Regions)
}

func (h *UtilsHandler) TimeControls(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, utils.TimeControls)
}

func (h *UtilsHandler) Formats(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.catalog.Formats())
}

func (h *UtilsHandler) CalculateRounds(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		badRequestResponse(w, r, errors.New("query parameter \"format\" is required"))
		return
	}
	count, err := queryInt(r, "player_count", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	plan, err := h.catalog.CalculateRounds(models.TournamentFormat(format), count)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, plan)
}

func (h *UtilsHandler) PublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.PublicStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

func (h *UtilsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 3)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	list, err := h.catalog.Upcoming(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}
