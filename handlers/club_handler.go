package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/checked/repositories"
	"github.com/Dosada05/checked/services"
)

const maxLogoFormBytes = 3 << 20

type ClubHandler struct {
	clubService services.ClubService
}

func NewClubHandler(clubService services.ClubService) *ClubHandler {
	return &ClubHandler{clubService: clubService}
}

func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 20)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	sortBy := repositories.ClubSort(q.Get("sort_by"))
	if sortBy == "" {
		sortBy = repositories.ClubSortPerformance
	}

	out, err := h.clubService.List(r.Context(), services.ClubListFilter{
		County:   q.Get("county"),
		ClubType: q.Get("club_type"),
		Search:   q.Get("search"),
		SortBy:   sortBy,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (h *ClubHandler) Counties(w http.ResponseWriter, r *http.Request) {
	counties, err := h.clubService.Counties(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, counties)
}

func (h *ClubHandler) Get(w http.ResponseWriter, r *http.Request) {
	club, err := h.clubService.Get(r.Context(), urlParam(r, "clubID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, club)
}

func (h *ClubHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.ClubInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	club, err := h.clubService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, club)
}

func (h *ClubHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input services.ClubInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	club, err := h.clubService.Update(r.Context(), urlParam(r, "clubID"), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, club)
}

func (h *ClubHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clubService.Delete(r.Context(), urlParam(r, "clubID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClubHandler) Join(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	msg, err := h.clubService.Join(r.Context(), player, urlParam(r, "clubID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, msg)
}

func (h *ClubHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	msg, err := h.clubService.Leave(r.Context(), player, urlParam(r, "clubID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, msg)
}

func (h *ClubHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	msg, err := h.clubService.AddMember(r.Context(), urlParam(r, "clubID"), urlParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"message": msg})
}

func (h *ClubHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.clubService.RemoveMember(r.Context(), urlParam(r, "clubID"), urlParam(r, "playerID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClubHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.clubService.RefreshStats(r.Context(), urlParam(r, "clubID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

func (h *ClubHandler) RefreshAllStats(w http.ResponseWriter, r *http.Request) {
	n, err := h.clubService.RefreshAllStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"message": "Club statistics refreshed", "clubs_updated": n})
}

// UploadLogo takes a multipart form with the image in the "logo" field.
func (h *ClubHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoFormBytes)
	if err := r.ParseMultipartForm(maxLogoFormBytes); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	club, err := h.clubService.UploadLogo(r.Context(), urlParam(r, "clubID"), header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, club)
}
