package brackets

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types broadcast to tournament rooms.
const (
	EventMatchUpdated      = "MATCH_UPDATED"
	EventTournamentUpdated = "TOURNAMENT_UPDATED"
)

// Event is the envelope sent to websocket subscribers of a tournament.
type Event struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket subscriber, bound to a single tournament room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room int
}

// Hub fans tournament events out to the clients watching each bracket.
// Rooms are keyed by tournament id.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[int]map[*Client]struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[int]map[*Client]struct{}),
		logger:     logger,
	}
}

// Run owns room membership. It must be started once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]struct{})
			}
			h.rooms[client.room][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client joined", slog.Int("tournament_id", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.room]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client left", slog.Int("tournament_id", client.room))
		}
	}
}

// Broadcast sends an event to every client in the tournament's room.
// Slow clients are skipped rather than blocking the caller.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal hub event", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[event.TournamentID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping hub event, client send buffer full",
				slog.Int("tournament_id", event.TournamentID))
		}
	}
}

// Subscribe registers a new client for a tournament room and starts its
// read and write pumps.
func (h *Hub) Subscribe(conn *websocket.Conn, tournamentID int) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		room: tournamentID,
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames. Clients are listen-only; anything they
// send is discarded, but reads are required to process control frames.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
