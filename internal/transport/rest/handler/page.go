package handler

import (
	"errors"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"insightai/internal/render"
	"insightai/internal/service"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const sessionCookie = "insightai_session"

// SessionTokens validates the session token kept in the page cookie
type SessionTokens interface {
	ValidateSessionToken(token string) (*model.SessionClaims, error)
}

// PageHandler serves the server-rendered respondent chat pages. The session token lives
// in a cookie scoped to the page path, so each survey and skin gets its own conversation.
type PageHandler struct {
	sessions  SessionService
	tokens    SessionTokens
	renderer  *render.HTMLRenderer
	cookieTTL time.Duration
	secure    bool
}

// NewPageHandler creates a new page handler
func NewPageHandler(sessions SessionService, tokens SessionTokens, renderer *render.HTMLRenderer, cookieTTL time.Duration, secure bool) *PageHandler {
	return &PageHandler{
		sessions:  sessions,
		tokens:    tokens,
		renderer:  renderer,
		cookieTTL: cookieTTL,
		secure:    secure,
	}
}

// Take handles GET|POST /survey/{surveyId}/take
func (h *PageHandler) Take(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, conversation.SkinChat)
}

// WhatsApp handles GET|POST /survey/{surveyId}/whatsapp
func (h *PageHandler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, conversation.SkinWhatsApp)
}

func (h *PageHandler) serve(w http.ResponseWriter, r *http.Request, skin string) {
	if r.Method == http.MethodPost {
		h.post(w, r, skin)
		return
	}
	h.get(w, r, skin)
}

func (h *PageHandler) get(w http.ResponseWriter, r *http.Request, skin string) {
	surveyID := mux.Vars(r)["surveyId"]

	snap := h.current(r, surveyID, skin)
	if snap == nil {
		view, err := h.sessions.Start(r.Context(), surveyID, skin)
		if err != nil {
			h.renderError(w, skin, sessionStatus(err), startFailedMessage)
			return
		}
		h.setCookie(w, r, view.Token)
		snap = view.Snapshot
	}
	h.renderChat(w, r, http.StatusOK, snap, "")
}

func (h *PageHandler) post(w http.ResponseWriter, r *http.Request, skin string) {
	surveyID := mux.Vars(r)["surveyId"]

	sessionID := h.sessionID(r, surveyID)
	if sessionID == "" {
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
		return
	}

	snap, err := h.sessions.Submit(r.Context(), sessionID, r.PostFormValue("answer"))
	switch {
	case err == nil,
		errors.Is(err, conversation.ErrSubmitFailed),
		errors.Is(err, conversation.ErrEmptyInput),
		errors.Is(err, conversation.ErrDone):
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
	case errors.Is(err, service.ErrSessionNotFound):
		h.clearCookie(w, r)
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
	case errors.Is(err, conversation.ErrBusy):
		if snap, err = h.sessions.Get(r.Context(), sessionID); err != nil {
			h.renderError(w, skin, sessionStatus(err), startFailedMessage)
			return
		}
		h.renderChat(w, r, http.StatusConflict, snap, "Please wait, your previous answer is still being sent.")
	default:
		log.Printf("[Page] submit failed for session %s: %v", sessionID, err)
		h.renderError(w, skin, sessionStatus(err), startFailedMessage)
	}
}

// current returns the snapshot of the cookie's session when it belongs to this page
func (h *PageHandler) current(r *http.Request, surveyID, skin string) *model.Snapshot {
	sessionID := h.sessionID(r, surveyID)
	if sessionID == "" {
		return nil
	}
	snap, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil || snap.Skin != skin {
		return nil
	}
	return snap
}

func (h *PageHandler) sessionID(r *http.Request, surveyID string) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	claims, err := h.tokens.ValidateSessionToken(cookie.Value)
	if err != nil || claims.SurveyID != surveyID {
		return ""
	}
	return claims.SessionID
}

func (h *PageHandler) setCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     r.URL.Path,
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *PageHandler) clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: r.URL.Path, MaxAge: -1})
}

func (h *PageHandler) renderChat(w http.ResponseWriter, r *http.Request, status int, snap *model.Snapshot, notice string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.renderer.RenderChat(w, snap, r.URL.Path, notice); err != nil {
		log.Printf("[Page] render failed: %v", err)
	}
}

func (h *PageHandler) renderError(w http.ResponseWriter, skin string, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := render.ErrorPageData{Skin: skin, Message: message}
	if err := h.renderer.RenderError(w, data); err != nil {
		log.Printf("[Page] render failed: %v", err)
	}
}

// SecureCookies reports whether cookies should be marked Secure for a public URL
func SecureCookies(publicURL string) bool {
	return strings.HasPrefix(publicURL, "https://")
}
