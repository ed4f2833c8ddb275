package ws

import (
	"context"
	"encoding/json"
	"errors"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct{}

func (stubTokens) ValidateSessionToken(token string) (*model.SessionClaims, error) {
	if !strings.HasPrefix(token, "tok-") {
		return nil, errors.New("invalid token")
	}
	return &model.SessionClaims{SessionID: strings.TrimPrefix(token, "tok-"), SurveyID: "s1"}, nil
}

// stubSessions echoes every answer back through the hub like the session service does
type stubSessions struct {
	hub *Hub

	mu      sync.Mutex
	answers []string

	// set to hold Submit open until closed
	entered chan struct{}
	block   chan struct{}
}

func (s *stubSessions) Get(ctx context.Context, sessionID string) (*model.Snapshot, error) {
	if sessionID != "sess-1" {
		return nil, errors.New("session not found")
	}
	return &model.Snapshot{SessionID: sessionID, SurveyTitle: "Checkout research"}, nil
}

func (s *stubSessions) Submit(ctx context.Context, sessionID, text string) (*model.Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return nil, conversation.ErrEmptyInput
	}
	s.mu.Lock()
	entered, block := s.entered, s.block
	s.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	s.mu.Lock()
	s.answers = append(s.answers, text)
	s.mu.Unlock()
	snap := &model.Snapshot{SessionID: sessionID, Transcript: []model.Message{{Role: model.RoleRespondent, Text: text}}}
	s.hub.BroadcastToSession(sessionID, string(MsgTranscriptUpdate), snap)
	return snap, nil
}

func newWSServer(t *testing.T) (*httptest.Server, *Hub, *stubSessions) {
	t.Helper()
	hub := NewHub()
	sessions := &stubSessions{hub: hub}
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/sessions/{sessionId}", NewHandler(hub, stubTokens{}, sessions).SessionWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, sessions
}

func dial(t *testing.T, srv *httptest.Server, sessionID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/sessions/" + sessionID + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestSessionWSRejectsBadTokens(t *testing.T) {
	srv, _, _ := newWSServer(t)
	base := srv.URL + "/v1/ws/sessions/sess-1"

	resp, err := http.Get(base)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(base + "?token=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(base + "?token=tok-other")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionWSStreamsTranscript(t *testing.T) {
	srv, hub, sessions := newWSServer(t)

	first := dial(t, srv, "sess-1", "tok-sess-1")
	msg := readMessage(t, first)
	assert.Equal(t, MsgTranscriptUpdate, msg.Type)
	assert.Contains(t, string(msg.Payload), "Checkout research")

	second := dial(t, srv, "sess-1", "tok-sess-1")
	readMessage(t, second)
	waitFor(t, func() bool { return hub.Subscribers("sess-1") == 2 })

	require.NoError(t, first.WriteJSON(ClientMessage{Type: MsgAnswer, Text: "online"}))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, MsgTranscriptUpdate, msg.Type)
		var snap model.Snapshot
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		require.Len(t, snap.Transcript, 1)
		assert.Equal(t, "online", snap.Transcript[0].Text)
	}
	sessions.mu.Lock()
	assert.Equal(t, []string{"online"}, sessions.answers)
	sessions.mu.Unlock()
}

func TestSessionWSErrorsGoToSenderOnly(t *testing.T) {
	srv, hub, _ := newWSServer(t)

	sender := dial(t, srv, "sess-1", "tok-sess-1")
	readMessage(t, sender)
	watcher := dial(t, srv, "sess-1", "tok-sess-1")
	readMessage(t, watcher)
	waitFor(t, func() bool { return hub.Subscribers("sess-1") == 2 })

	require.NoError(t, sender.WriteJSON(ClientMessage{Type: MsgAnswer, Text: "  "}))
	msg := readMessage(t, sender)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), conversation.ErrEmptyInput.Error())

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing"}`)))
	msg = readMessage(t, sender)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), "unknown message type")

	watcher.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := watcher.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectSession(t *testing.T) {
	srv, hub, _ := newWSServer(t)

	conn := dial(t, srv, "sess-1", "tok-sess-1")
	readMessage(t, conn)
	waitFor(t, func() bool { return hub.Subscribers("sess-1") == 1 })

	hub.DisconnectSession("sess-1")
	waitFor(t, func() bool { return hub.Subscribers("sess-1") == 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestSessionWSKeepsReadingWhileSubmitting(t *testing.T) {
	srv, _, sessions := newWSServer(t)
	entered, block := make(chan struct{}, 1), make(chan struct{})
	sessions.mu.Lock()
	sessions.entered, sessions.block = entered, block
	sessions.mu.Unlock()

	conn := dial(t, srv, "sess-1", "tok-sess-1")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgAnswer, Text: "first"}))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("submit never started")
	}

	// the slow submit does not stall the reader
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgAnswer, Text: "second"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), conversation.ErrBusy.Error())

	close(block)
	msg = readMessage(t, conn)
	assert.Equal(t, MsgTranscriptUpdate, msg.Type)
	assert.Contains(t, string(msg.Payload), "first")

	sessions.mu.Lock()
	assert.Equal(t, []string{"first"}, sessions.answers)
	sessions.mu.Unlock()
}
