package handlers

import (
	"net/http"

	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// MyMatches lists the caller's games across all tournaments.
func (h *MatchHandler) MyMatches(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	offset, limit, err := paging(r, 50, 200)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	q := r.URL.Query()
	matches, err := h.matchService.MyMatches(r.Context(), player.ID, services.MatchFilter{
		Status:         repositories.MatchStatus(q.Get("status")),
		TournamentType: services.MatchType(q.Get("tournament_type")),
		TournamentID:   q.Get("tournament_id"),
		Offset:         offset,
		Limit:          limit,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, matches)
}

func (h *MatchHandler) ActionRequiredCount(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	count, err := h.matchService.ActionRequiredCount(r.Context(), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, count)
}
