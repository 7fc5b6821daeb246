package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type PairingHandler struct {
	pairingService services.PairingService
}

func NewPairingHandler(pairingService services.PairingService) *PairingHandler {
	return &PairingHandler{pairingService: pairingService}
}

func (h *PairingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	pairings, err := h.pairingService.GenerateRound(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairings)
}

func (h *PairingHandler) List(w http.ResponseWriter, r *http.Request) {
	round, err := queryIntPtr(r, "round_number")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pairings, err := h.pairingService.List(r.Context(), urlParam(r, "tournamentID"), round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairings)
}

func (h *PairingHandler) Get(w http.ResponseWriter, r *http.Request) {
	pairing, err := h.pairingService.Get(r.Context(), urlParam(r, "tournamentID"), urlParam(r, "pairingID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	pairings, err := h.pairingService.CurrentRound(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairings)
}

func (h *PairingHandler) MyPairings(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	pairings, err := h.pairingService.MyPairings(r.Context(), urlParam(r, "tournamentID"), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairings)
}

func (h *PairingHandler) UpdateResult(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var upd services.ResultUpdate
	if err := readJSON(w, r, &upd); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pairing, err := h.pairingService.UpdateResult(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"), upd)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) SubmitGame(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var input struct {
		GameURL string `json:"game_url"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.GameURL) == "" {
		badRequestResponse(w, r, errors.New("game_url is required"))
		return
	}
	out, err := h.pairingService.SubmitGame(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"), input.GameURL)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (h *PairingHandler) ClaimNoShow(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	out, err := h.pairingService.ClaimNoShow(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (h *PairingHandler) ProcessDeadlines(w http.ResponseWriter, r *http.Request) {
	report, err := h.pairingService.ProcessDeadlines(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

func (h *PairingHandler) ExpiredPairings(w http.ResponseWriter, r *http.Request) {
	report, err := h.pairingService.ExpiredPairings(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

func (h *PairingHandler) ClaimResult(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var input struct {
		Result models.GameResult `json:"result"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pairing, err := h.pairingService.ClaimResult(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"), input.Result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	pairing, err := h.pairingService.ConfirmResult(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) DisputeResult(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pairing, err := h.pairingService.DisputeResult(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"), input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) CancelClaim(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	pairing, err := h.pairingService.CancelClaim(r.Context(), player, urlParam(r, "tournamentID"), urlParam(r, "pairingID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}

func (h *PairingHandler) PendingConfirmations(w http.ResponseWriter, r *http.Request) {
	claims, err := h.pairingService.PendingConfirmations(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, claims)
}

func (h *PairingHandler) DisputedResults(w http.ResponseWriter, r *http.Request) {
	claims, err := h.pairingService.DisputedResults(r.Context(), urlParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, claims)
}

func (h *PairingHandler) AdminOverride(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var input struct {
		Result models.GameResult `json:"result"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pairing, err := h.pairingService.OverrideResult(r.Context(), admin, urlParam(r, "tournamentID"), urlParam(r, "pairingID"), input.Result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pairing)
}
