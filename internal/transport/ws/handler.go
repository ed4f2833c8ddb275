package ws

import (
	"context"
	"encoding/json"
	"errors"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Sessions is the part of the session service a subscriber drives
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*model.Snapshot, error)
	Submit(ctx context.Context, sessionID, text string) (*model.Snapshot, error)
}

// TokenValidator checks respondent session tokens
type TokenValidator interface {
	ValidateSessionToken(token string) (*model.SessionClaims, error)
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	tokens   TokenValidator
	sessions Sessions
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, tokens TokenValidator, sessions Sessions) *Handler {
	return &Handler{
		hub:      hub,
		tokens:   tokens,
		sessions: sessions,
	}
}

// SessionWS handles GET /v1/ws/sessions/{sessionId}?token=...
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateSessionToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.SessionID != sessionID {
		http.Error(w, "token not valid for this session", http.StatusForbidden)
		return
	}

	snap, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	conn := &Connection{
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
	}

	h.hub.Register(conn)
	// the subscriber starts from the current transcript
	h.hub.Reply(conn, MsgTranscriptUpdate, snap)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			break
		}
		h.handleClientMessage(conn, data)
	}
}

// handleClientMessage runs one subscriber event. Transcript changes reach every
// subscriber through the session broadcaster; only failures are answered directly.
func (h *Handler) handleClientMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.hub.Reply(conn, MsgError, map[string]string{"error": "invalid message"})
		return
	}

	switch msg.Type {
	case MsgAnswer:
		if !conn.submitting.CompareAndSwap(false, true) {
			h.hub.Reply(conn, MsgError, map[string]string{"error": conversation.ErrBusy.Error()})
			return
		}
		go h.submit(conn, msg.Text)
	default:
		h.hub.Reply(conn, MsgError, map[string]string{"error": "unknown message type"})
	}
}

// submit runs outside the read loop: a backend call may outlast the pong deadline
func (h *Handler) submit(conn *Connection, text string) {
	defer conn.submitting.Store(false)
	_, err := h.sessions.Submit(context.Background(), conn.SessionID, text)
	if err != nil && !errors.Is(err, conversation.ErrSubmitFailed) {
		h.hub.Reply(conn, MsgError, map[string]string{"error": err.Error()})
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
