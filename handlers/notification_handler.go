package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	unreadOnly, err := queryBool(r, "unread_only")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 30)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	list, err := h.notificationService.List(r.Context(), player.ID, unreadOnly, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	n, err := h.notificationService.UnreadCount(r.Context(), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkRead(r.Context(), player.ID, urlParam(r, "notificationID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.MarkAllRead(r.Context(), player.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, "All notifications marked as read")
}

func (h *NotificationHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.notificationService.VAPIDPublicKey()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"vapid_public_key": key})
}

func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	var sub models.PushSubscription
	if err := readJSON(w, r, &sub); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.notificationService.Subscribe(r.Context(), player.ID, sub); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, "Push subscription registered successfully")
}

func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	if err := h.notificationService.Unsubscribe(r.Context(), player.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	message(w, r, "Push notifications disabled")
}

func (h *NotificationHandler) TogglePush(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("enabled") == "" {
		badRequestResponse(w, r, errors.New("query parameter \"enabled\" is required"))
		return
	}
	enabled, err := queryBool(r, "enabled")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	status, err := h.notificationService.TogglePush(r.Context(), player.ID, enabled)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, status)
}

func (h *NotificationHandler) PushStatus(w http.ResponseWriter, r *http.Request) {
	player, ok := currentPlayer(w, r)
	if !ok {
		return
	}
	status, err := h.notificationService.PushStatus(r.Context(), player.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, status)
}
