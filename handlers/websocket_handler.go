package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/realtime"
	"github.com/Dosada05/checked/services"
)

// TournamentRooms lists the tournaments a player follows on connect.
type TournamentRooms interface {
	ActiveTournamentIDs(ctx context.Context, playerID string) ([]string, error)
}

type WebSocketHandler struct {
	hub      *realtime.Hub
	auth     services.AuthService
	players  services.PlayerService
	rooms    TournamentRooms
	metrics  *metrics.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(
	hub *realtime.Hub,
	auth services.AuthService,
	players services.PlayerService,
	rooms TournamentRooms,
	m *metrics.Metrics,
	allowedOrigins []string,
	logger *slog.Logger,
) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:     hub,
		auth:    auth,
		players: players,
		rooms:   rooms,
		metrics: m,
		logger:  logger.With(slog.String("component", "websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWs upgrades /ws?token=<jwt> and subscribes the player to every
// tournament they are still playing in.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		realtime.Reject(conn, realtime.CloseMissingToken, "Missing token")
		return
	}
	playerID, err := h.auth.ParseToken(token)
	if err != nil {
		realtime.Reject(conn, realtime.CloseInvalidToken, "Invalid token")
		return
	}
	player, err := h.activePlayer(r.Context(), playerID)
	if err != nil {
		realtime.Reject(conn, realtime.ClosePlayerNotFound, "Player not found")
		return
	}

	rooms, err := h.rooms.ActiveTournamentIDs(r.Context(), player.ID)
	if err != nil {
		h.logger.Error("failed to load tournament rooms", slog.String("player_id", player.ID), slog.Any("error", err))
	}

	client := realtime.NewClient(h.hub, conn, player.ID, rooms)
	if err := client.Attach(r.Context()); err != nil {
		h.logger.Warn("websocket attach failed", slog.String("player_id", player.ID), slog.Any("error", err))
		conn.Close()
		return
	}
	if h.metrics != nil {
		h.metrics.WebsocketConnections.Inc()
		defer h.metrics.WebsocketConnections.Dec()
	}
	h.logger.Info("websocket connected", slog.String("player_id", player.ID), slog.Int("rooms", len(rooms)))

	go client.WritePump()
	client.ReadPump(r.Context())
}

func (h *WebSocketHandler) activePlayer(ctx context.Context, playerID string) (*models.Player, error) {
	player, err := h.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !player.IsActive {
		return nil, errors.New("player is inactive")
	}
	return player, nil
}

func (h *WebSocketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.hub.Stats())
}
