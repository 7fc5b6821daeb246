package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Close codes sent before the connection is accepted into the hub.
const (
	CloseMissingToken   = 4001
	CloseInvalidToken   = 4002
	ClosePlayerNotFound = 4003
)

var ErrHubStopped = errors.New("websocket hub is not running")

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	PlayerID string

	initialRooms []string
	registered   chan struct{}
	isClosed     bool
	mu           sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, playerID string, rooms []string) *Client {
	return &Client{
		Hub:          hub,
		Conn:         conn,
		Send:         make(chan []byte, sendBuffer),
		PlayerID:     playerID,
		initialRooms: rooms,
		registered:   make(chan struct{}),
	}
}

// Attach registers the client and queues the welcome message.
func (c *Client) Attach(ctx context.Context) error {
	select {
	case c.Hub.Register <- c:
	case <-c.Hub.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.registered:
	case <-c.Hub.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	c.sendEvent(Event{Event: "connected", Data: map[string]interface{}{
		"player_id":              c.PlayerID,
		"subscribed_tournaments": c.Hub.Subscriptions(c.PlayerID),
	}})
	return nil
}

func (c *Client) deliver(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return
	}
	select {
	case c.Send <- msg:
	default:
		c.Hub.logger.Warn("websocket send buffer full, dropping event", "player_id", c.PlayerID)
	}
}

func (c *Client) sendEvent(event Event) {
	if msg, ok := c.Hub.encode(event); ok {
		c.deliver(msg)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

type clientMessage struct {
	Action       string `json:"action"`
	TournamentID string `json:"tournament_id"`
}

// ReadPump handles client actions until the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", "player_id", c.PlayerID, "error", err)
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendEvent(Event{Event: "error", Data: map[string]string{"message": "Invalid message"}})
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Client) handle(ctx context.Context, msg clientMessage) {
	switch msg.Action {
	case "ping":
		c.sendEvent(Event{Event: "pong"})

	case "subscribe":
		if msg.TournamentID == "" {
			return
		}
		ok, err := c.Hub.members.IsParticipant(ctx, msg.TournamentID, c.PlayerID)
		if err != nil {
			c.Hub.logger.Error("failed to check tournament membership", "player_id", c.PlayerID, "tournament_id", msg.TournamentID, "error", err)
		}
		if !ok {
			c.sendEvent(Event{Event: "error", Data: map[string]string{"message": "You are not in this tournament"}})
			return
		}
		c.Hub.Subscribe(c.PlayerID, msg.TournamentID)
		c.sendEvent(Event{Event: "subscribed", Data: map[string]string{"tournament_id": msg.TournamentID}})

	case "unsubscribe":
		if msg.TournamentID == "" {
			return
		}
		c.Hub.Unsubscribe(c.PlayerID, msg.TournamentID)
		c.sendEvent(Event{Event: "unsubscribed", Data: map[string]string{"tournament_id": msg.TournamentID}})

	case "status":
		c.sendEvent(Event{Event: "status", Data: map[string]interface{}{
			"subscribed_tournaments": c.Hub.Subscriptions(c.PlayerID),
		}})
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("websocket write failed", "player_id", c.PlayerID, "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reject closes an unauthenticated connection with an application close code.
func Reject(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}
