package handler

import (
	"context"
	"encoding/json"
	"errors"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"insightai/internal/service"
	"net/http"

	"github.com/gorilla/mux"
)

const startFailedMessage = "Survey not found or server error."

// SessionService is what the respondent endpoints drive
type SessionService interface {
	Start(ctx context.Context, surveyID, skinName string) (*model.SessionView, error)
	Get(ctx context.Context, sessionID string) (*model.Snapshot, error)
	Submit(ctx context.Context, sessionID, text string) (*model.Snapshot, error)
}

// SessionHandler handles respondent session endpoints
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartSessionRequest selects the chat skin of a new session
type StartSessionRequest struct {
	Skin string `json:"skin"`
}

// MessageRequest carries one respondent input
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse is the conversation after an input. Error is set when the backend
// rejected the answer; the transcript then ends with the error message and the same
// question can be answered again.
type MessageResponse struct {
	Snapshot *model.Snapshot `json:"snapshot"`
	Error    string          `json:"error,omitempty"`
}

// Start handles POST /v1/surveys/{surveyId}/sessions
//
//	@Summary	Start a respondent session
//	@Tags		sessions
//	@Accept		json
//	@Produce	json
//	@Param		surveyId	path		string				true	"survey id"
//	@Param		body		body		StartSessionRequest	false	"skin"
//	@Success	201			{object}	model.SessionView
//	@Failure	404			{object}	ErrorResponse
//	@Router		/surveys/{surveyId}/sessions [post]
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	var req StartSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	view, err := h.sessions.Start(r.Context(), surveyID, req.Skin)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Get handles GET /v1/sessions/{sessionId}
//
//	@Summary	Current conversation snapshot
//	@Tags		sessions
//	@Produce	json
//	@Security	SessionToken
//	@Param		sessionId	path		string	true	"session id"
//	@Success	200			{object}	model.Snapshot
//	@Failure	404			{object}	ErrorResponse
//	@Router		/sessions/{sessionId} [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PostMessage handles POST /v1/sessions/{sessionId}/messages
//
//	@Summary	Submit a respondent input
//	@Tags		sessions
//	@Accept		json
//	@Produce	json
//	@Security	SessionToken
//	@Param		sessionId	path		string			true	"session id"
//	@Param		body		body		MessageRequest	true	"answer"
//	@Success	200			{object}	MessageResponse
//	@Failure	400			{object}	ErrorResponse
//	@Failure	409			{object}	ErrorResponse
//	@Router		/sessions/{sessionId}/messages [post]
func (h *SessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.sessions.Submit(r.Context(), mux.Vars(r)["sessionId"], req.Text)
	if errors.Is(err, conversation.ErrSubmitFailed) {
		writeJSON(w, http.StatusOK, MessageResponse{Snapshot: snap, Error: conversation.ErrSubmitFailed.Error()})
		return
	}
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Snapshot: snap})
}

// sessionStatus maps session errors to HTTP status codes
func sessionStatus(err error) int {
	switch {
	case errors.Is(err, conversation.ErrEmptyInput), errors.Is(err, service.ErrUnknownSkin):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrDone):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSurveyUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	status := sessionStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrSurveyUnavailable):
		msg = startFailedMessage
	case status == http.StatusInternalServerError:
		msg = "internal error"
	}
	writeError(w, status, msg)
}
