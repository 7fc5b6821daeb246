// Package realtime pushes tournament events to connected players over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event is the envelope for every server message.
type Event struct {
	Event        string      `json:"event"`
	TournamentID string      `json:"tournament_id,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    string      `json:"timestamp,omitempty"`
}

func NewEvent(name, tournamentID string, data interface{}) Event {
	return Event{
		Event:        name,
		TournamentID: tournamentID,
		Data:         data,
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
}

// MembershipChecker reports whether a player may subscribe to a tournament room.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, tournamentID, playerID string) (bool, error)
}

type Stats struct {
	TotalConnections   int            `json:"total_connections"`
	TournamentRooms    int            `json:"tournament_rooms"`
	ConnectionsPerRoom map[string]int `json:"connections_per_room"`
}

// Hub tracks one connection per player and the tournament rooms they follow.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	clients map[string]*Client
	rooms   map[string]map[string]bool
	mu      sync.RWMutex

	members MembershipChecker
	logger  *slog.Logger
	done    chan struct{}
}

func NewHub(members MembershipChecker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		members:    members,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.Register:
			h.mu.Lock()
			if old, ok := h.clients[client.PlayerID]; ok && old != client {
				old.close()
			}
			h.clients[client.PlayerID] = client
			for _, tid := range client.initialRooms {
				h.subscribeLocked(client.PlayerID, tid)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "player_id", client.PlayerID, "rooms", len(client.initialRooms))
			close(client.registered)

		case client := <-h.Unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.PlayerID]; ok && current == client {
				delete(h.clients, client.PlayerID)
				h.leaveAllLocked(client.PlayerID)
			}
			h.mu.Unlock()
			client.close()
			h.logger.Debug("websocket client disconnected", "player_id", client.PlayerID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) subscribeLocked(playerID, tournamentID string) {
	room, ok := h.rooms[tournamentID]
	if !ok {
		room = make(map[string]bool)
		h.rooms[tournamentID] = room
	}
	room[playerID] = true
}

func (h *Hub) leaveAllLocked(playerID string) {
	for tid, room := range h.rooms {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, tid)
		}
	}
}

func (h *Hub) Subscribe(playerID, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(playerID, tournamentID)
}

func (h *Hub) Unsubscribe(playerID, tournamentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[tournamentID]; ok {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, tournamentID)
		}
	}
}

// Subscriptions lists the rooms a player follows.
func (h *Hub) Subscriptions(playerID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0)
	for tid, room := range h.rooms {
		if room[playerID] {
			out = append(out, tid)
		}
	}
	return out
}

func (h *Hub) IsConnected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	b, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode websocket event", "event", event.Event, "error", err)
		return nil, false
	}
	return b, true
}

// SendToPlayer delivers an event if the player is connected.
func (h *Hub) SendToPlayer(playerID string, event Event) {
	msg, ok := h.encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	client, connected := h.clients[playerID]
	h.mu.RUnlock()
	if connected {
		client.deliver(msg)
	}
}

func (h *Hub) SendToPlayers(playerIDs []string, event Event) {
	for _, id := range playerIDs {
		h.SendToPlayer(id, event)
	}
}

// BroadcastToTournament sends an event to every subscriber of the room.
func (h *Hub) BroadcastToTournament(tournamentID string, event Event, exclude ...string) {
	msg, ok := h.encode(event)
	if !ok {
		return
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[tournamentID]))
	for playerID := range h.rooms[tournamentID] {
		if skip[playerID] {
			continue
		}
		if c, ok := h.clients[playerID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.deliver(msg)
	}
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := Stats{
		TotalConnections:   len(h.clients),
		TournamentRooms:    len(h.rooms),
		ConnectionsPerRoom: make(map[string]int, len(h.rooms)),
	}
	for tid, room := range h.rooms {
		s.ConnectionsPerRoom[tid] = len(room)
	}
	return s
}
