package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Server message types
const (
	MsgTranscriptUpdate MessageType = "transcript_update"
	MsgSessionComplete  MessageType = "session_complete"
	MsgError            MessageType = "error"
)

// Client message types
const (
	MsgAnswer MessageType = "answer"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ClientMessage is an event sent by a subscriber
type ClientMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// Hub fans session events out to the WebSocket subscribers of each session
type Hub struct {
	// session -> connections
	sessions map[string]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub

	// one answer in flight per connection; the read loop keeps serving pongs meanwhile
	submitting atomic.Bool
}

// BroadcastMessage is a message for the subscribers of one session. To limits it to a
// single connection.
type BroadcastMessage struct {
	SessionID string
	To        *Connection
	Message   *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		disconnect: make(chan string, 16),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[*Connection]struct{})
			}
			h.sessions[conn.SessionID][conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("[WS] subscriber connected to session %s", conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.sessions[conn.SessionID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.sessions, conn.SessionID)
					}
					log.Printf("[WS] subscriber left session %s", conn.SessionID)
				}
			}
			h.mu.Unlock()

		case sessionID := <-h.disconnect:
			h.mu.Lock()
			for conn := range h.sessions[sessionID] {
				close(conn.Send)
			}
			delete(h.sessions, sessionID)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, _ := json.Marshal(msg.Message)
			h.mu.RLock()
			for conn := range h.sessions[msg.SessionID] {
				if msg.To != nil && msg.To != conn {
					continue
				}
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession sends a message to every subscriber of a session (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectSession closes every subscriber of a session (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	h.disconnect <- sessionID
}

// Subscribers returns the number of connections on a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Reply sends a message to one connection, if it is still registered
func (h *Hub) Reply(conn *Connection, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID: conn.SessionID,
		To:        conn,
		Message: &Message{
			Type:    msgType,
			Payload: data,
		},
	}
}
