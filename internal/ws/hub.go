package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"imposter-game-backend/internal/events"

	"github.com/gorilla/websocket"
)

const (
	// WriteWait bounds a single frame write to a subscriber.
	WriteWait = 10 * time.Second
	// sendBuffer is how many frames may queue for one subscriber before it
	// is dropped as too slow.
	sendBuffer = 64
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client is one subscriber. Only its writer goroutine touches conn for
// writes; done closes when the hub drops it.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub fans session events out to websocket subscribers. The hub lock guards
// the subscriber sets only; frames are written by per-connection writers.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*websocket.Conn]*client

	writeWait  time.Duration
	sendBuffer int
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*websocket.Conn]*client),
		writeWait:  WriteWait,
		sendBuffer: sendBuffer,
	}
}

func (h *Hub) AddConnection(sessionID string, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*websocket.Conn]*client)
	}
	h.sessions[sessionID][conn] = c
	total := len(h.sessions[sessionID])
	h.mu.Unlock()

	go h.writeLoop(sessionID, c)
	log.Printf("ws: client connected to session %s (total: %d)", sessionID, total)
}

func (h *Hub) RemoveConnection(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	conns, ok := h.sessions[sessionID]
	c, known := conns[conn]
	if !ok || !known {
		h.mu.Unlock()
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	c.close()
	log.Printf("ws: client disconnected from session %s", sessionID)
}

// Connections returns the number of subscribers of a session.
func (h *Hub) Connections(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

// Publish implements events.Publisher.
func (h *Hub) Publish(event events.Event) {
	h.Broadcast(event.SessionID, WSMessage{Type: string(event.Type), Data: event})
}

// Broadcast queues message for every subscriber of the session without
// blocking. A subscriber whose queue is full is dropped.
func (h *Hub) Broadcast(sessionID string, message WSMessage) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	for _, c := range clients {
		select {
		case <-c.done:
		case c.send <- data:
		default:
			log.Printf("ws: dropping slow client of session %s", sessionID)
			h.RemoveConnection(sessionID, c.conn)
		}
	}
}

func (h *Hub) writeLoop(sessionID string, c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws: write error: %v", err)
				h.RemoveConnection(sessionID, c.conn)
				return
			}
		}
	}
}
