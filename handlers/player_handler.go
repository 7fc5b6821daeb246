package handlers

import (
	"net/http"
	"strings"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type PlayerHandler struct {
	playerService services.PlayerService
}

func NewPlayerHandler(playerService services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r, 50, 200)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	players, err := h.playerService.List(r.Context(), services.PlayerListFilter{
		County: r.URL.Query().Get("county"),
		Search: r.URL.Query().Get("search"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, players)
}

func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.playerService.Get(r.Context(), urlParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, player)
}

func (h *PlayerHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	player, err := h.playerService.GetByUsername(r.Context(), urlParam(r, "username"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, player)
}

func (h *PlayerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var patch services.PlayerPatch
	if err := readJSON(w, r, &patch); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	updated, err := h.playerService.UpdateProfile(r.Context(), player, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, updated)
}

func (h *PlayerHandler) RefreshMyAvatar(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	updated, err := h.playerService.RefreshAvatar(r.Context(), player)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, updated)
}

func (h *PlayerHandler) RefreshMyRatings(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	h.refreshRatings(w, r, player.ID)
}

func (h *PlayerHandler) RefreshRatings(w http.ResponseWriter, r *http.Request) {
	h.refreshRatings(w, r, urlParam(r, "playerID"))
}

func (h *PlayerHandler) refreshRatings(w http.ResponseWriter, r *http.Request, playerID string) {
	updated, err := h.playerService.RefreshRatings(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, updated)
}

func (h *PlayerHandler) RefreshAllRatings(w http.ResponseWriter, r *http.Request) {
	report, err := h.playerService.RefreshAllRatings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

func (h *PlayerHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	target := urlParam(r, "playerID")
	if target == admin.ID {
		forbiddenResponse(w, r, "Cannot change your own admin status")
		return
	}
	updated, err := h.playerService.ToggleAdmin(r.Context(), target)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, updated)
}

func (h *PlayerHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	target := urlParam(r, "playerID")
	if target == admin.ID {
		forbiddenResponse(w, r, "Cannot deactivate yourself")
		return
	}
	updated, err := h.playerService.ToggleActive(r.Context(), target)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, updated)
}

func (h *PlayerHandler) MyTournaments(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	h.tournaments(w, r, player.ID)
}

func (h *PlayerHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	h.tournaments(w, r, urlParam(r, "playerID"))
}

func (h *PlayerHandler) tournaments(w http.ResponseWriter, r *http.Request, playerID string) {
	offset, limit, err := paging(r, 20, 100)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var status *models.TournamentStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status_filter")); raw != "" {
		s := models.TournamentStatus(raw)
		status = &s
	}
	history, err := h.playerService.Tournaments(r.Context(), playerID, status, offset, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, history)
}

func (h *PlayerHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	h.stats(w, r, player.ID)
}

func (h *PlayerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.stats(w, r, urlParam(r, "playerID"))
}

func (h *PlayerHandler) stats(w http.ResponseWriter, r *http.Request, playerID string) {
	stats, err := h.playerService.Stats(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

func (h *PlayerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := paging(r, 50, 100)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	sortBy := services.LeaderboardSort(r.URL.Query().Get("sort_by"))
	if sortBy == "" {
		sortBy = services.SortByWins
	}
	board, err := h.playerService.Leaderboard(r.Context(), services.LeaderboardQuery{
		SortBy: sortBy,
		County: r.URL.Query().Get("county"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, board)
}
