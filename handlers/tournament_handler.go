package handlers

import (
	"net/http"

	"github.com/Dosada05/checked/middleware"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var input services.TournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Create(r.Context(), admin, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, t)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := tournamentFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	caller, _ := middleware.PlayerFromContext(r.Context())
	list, err := h.tournamentService.List(r.Context(), caller, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

func tournamentFilter(r *http.Request) (services.TournamentListFilter, error) {
	q := r.URL.Query()
	filter := services.TournamentListFilter{
		Search: q.Get("search"),
		County: q.Get("county"),
		Gender: q.Get("gender"),
	}
	if s := q.Get("status"); s != "" {
		status := models.TournamentStatus(s)
		filter.Status = &status
	}
	if f := q.Get("format"); f != "" {
		format := models.TournamentFormat(f)
		filter.Format = &format
	}

	var err error
	if filter.MinRating, err = queryIntPtr(r, "min_rating"); err != nil {
		return filter, err
	}
	if filter.MaxRating, err = queryIntPtr(r, "max_rating"); err != nil {
		return filter, err
	}
	if filter.Age, err = queryIntPtr(r, "age"); err != nil {
		return filter, err
	}
	if filter.FreeOnly, err = queryBool(r, "free_only"); err != nil {
		return filter, err
	}
	if filter.PaidOnly, err = queryBool(r, "paid_only"); err != nil {
		return filter, err
	}
	if filter.EligibleOnly, err = queryBool(r, "eligible_only"); err != nil {
		return filter, err
	}
	filter.Offset, filter.Limit, err = paging(r, 20, 100)
	return filter, err
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.tournamentService.Get(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.TournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Update(r.Context(), urlParam(r, "tournamentID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, t)
}

func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	entry, err := h.tournamentService.Join(r.Context(), player, urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, entry)
}

func (h *TournamentHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	result, err := h.tournamentService.CheckEligibility(r.Context(), player, urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (h *TournamentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	if err := h.tournamentService.Withdraw(r.Context(), player, urlParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, "Successfully withdrawn from tournament")
}

func (h *TournamentHandler) Players(w http.ResponseWriter, r *http.Request) {
	players, err := h.tournamentService.Players(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, players)
}

func (h *TournamentHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.tournamentService.Standings(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, standings)
}
