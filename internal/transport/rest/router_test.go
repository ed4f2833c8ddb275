package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"insightai/internal/config"
	"insightai/internal/metrics"
	"insightai/internal/model"
	"insightai/internal/render"
	"insightai/internal/service"
	"insightai/internal/transport/rest/middleware"
	"insightai/internal/transport/ws"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicURL = "http://gateway.test"

// fakeBackend stands in for the survey backend on both the respondent and researcher side
type fakeBackend struct {
	mu        sync.Mutex
	surveys   map[string]*model.Survey
	stats     model.SurveyStats
	submitErr error
	started   int
	deleted   []string
	generated []model.GenerateSurveyRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{surveys: map[string]*model.Survey{
		"s1": {ID: "s1", Title: "Checkout research", Status: model.SurveyActive, ResponseCount: 3, Questions: []model.Question{
			{ID: "q1", Text: "How do you shop?", Type: model.QuestionTypeOpenEnded},
			{ID: "q2", Text: "What would help?", Type: model.QuestionTypeOpenEnded},
		}},
	}}
}

func (b *fakeBackend) GetSurvey(ctx context.Context, surveyID string) (*model.Survey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.surveys[surveyID]
	if !ok {
		return nil, &service.APIError{Status: http.StatusNotFound, Message: "Survey not found"}
	}
	cp := *s
	return &cp, nil
}

func (b *fakeBackend) StartResponse(ctx context.Context, surveyID, channel string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.surveys[surveyID]; !ok {
		return "", &service.APIError{Status: http.StatusNotFound, Message: "Survey not found"}
	}
	b.started++
	return "resp-" + channel, nil
}

func (b *fakeBackend) SubmitAnswer(ctx context.Context, responseID string, req model.AnswerRequest) (*model.AnswerAck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &model.AnswerAck{}, nil
}

func (b *fakeBackend) CompleteResponse(ctx context.Context, responseID string) error {
	return nil
}

func (b *fakeBackend) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Survey
	for _, s := range b.surveys {
		out = append(out, *s)
	}
	return out, nil
}

func (b *fakeBackend) DeleteSurvey(ctx context.Context, surveyID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, surveyID)
	delete(b.surveys, surveyID)
	return nil
}

func (b *fakeBackend) GenerateSurvey(ctx context.Context, req model.GenerateSurveyRequest) (*model.Survey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generated = append(b.generated, req)
	return &model.Survey{SurveyID: "s9", Title: "Generated"}, nil
}

func (b *fakeBackend) GenerateInsights(ctx context.Context, surveyID string) (*model.InsightReport, error) {
	return &model.InsightReport{ExecutiveSummary: "People want speed"}, nil
}

func (b *fakeBackend) GetInsights(ctx context.Context, surveyID string) (*model.InsightReport, error) {
	return nil, nil
}

func (b *fakeBackend) GetSurveyStats(ctx context.Context, surveyID string) (*model.SurveyStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.stats
	return &stats, nil
}

type testServer struct {
	handler  http.Handler
	backend  *fakeBackend
	metrics  *metrics.Collector
	sessions *service.SessionService
	hub      *ws.Hub
}

func newTestServer(t *testing.T, ratePerMinute int) *testServer {
	t.Helper()
	backend := newFakeBackend()
	chat := &config.ChatConfig{SessionTTL: time.Hour, SurveyTTL: time.Minute, SubmitLockTTL: time.Minute}
	authSvc := service.NewAuthService("admin", "secret", "test-secret", time.Hour)
	sessions := service.NewSessionService(backend, authSvc, nil, nil, nil, chat, 5*time.Second)
	hub := ws.NewHub()
	sessions.SetBroadcaster(hub)

	renderer, err := render.NewHTMLRenderer(time.Second)
	require.NoError(t, err)
	collector := metrics.New("insightai")
	limiter := middleware.NewRateLimiter(ratePerMinute)
	t.Cleanup(limiter.Stop)

	h := NewRouter(&Container{
		AuthService:    authSvc,
		SessionService: sessions,
		API:            backend,
		Renderer:       renderer,
		Metrics:        collector,
		RateLimiter:    limiter,
		WSHub:          hub,
		PublicURL:      publicURL,
		SessionTTL:     time.Hour,
	})
	return &testServer{handler: h, backend: backend, metrics: collector, sessions: sessions, hub: hub}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) startSession(t *testing.T, skin string) *model.SessionView {
	t.Helper()
	rec := s.do(http.MethodPost, "/v1/surveys/s1/sessions", "", map[string]string{"skin": skin})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view model.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return &view
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthSwaggerAndMetrics(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "InsightAI Gateway API")
	assert.True(t, json.Valid(rec.Body.Bytes()))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "insightai_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodOptions, "/v1/sessions/abc", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 100)
	view := s.startSession(t, "chat")

	assert.NotEmpty(t, view.Token)
	assert.Equal(t, "Checkout research", view.Snapshot.SurveyTitle)
	assert.Len(t, view.Snapshot.Transcript, 1)

	path := "/v1/sessions/" + view.SessionID

	rec := s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, path, view.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	other := s.startSession(t, "chat")
	rec = s.do(http.MethodGet, path, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path+"/messages", view.Token, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path+"/messages", view.Token, map[string]string{"text": "online"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Snapshot model.Snapshot `json:"snapshot"`
		Error    string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, 1, resp.Snapshot.QuestionIndex)
	assert.Equal(t, 50, resp.Snapshot.Progress)

	rec = s.do(http.MethodPost, path+"/messages", view.Token, map[string]string{"text": "faster checkout"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Snapshot.Done)
	assert.Equal(t, 100, resp.Snapshot.Progress)

	rec = s.do(http.MethodPost, path+"/messages", view.Token, map[string]string{"text": "more"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartSessionUnknownSurvey(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodPost, "/v1/surveys/missing/sessions", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Survey not found or server error.", decodeError(t, rec))

	rec = s.do(http.MethodPost, "/v1/surveys/s1/sessions", "", map[string]string{"skin": "sms"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFailureKeepsSnapshot(t *testing.T) {
	s := newTestServer(t, 100)
	view := s.startSession(t, "whatsapp")
	s.backend.submitErr = errors.New("backend down")

	rec := s.do(http.MethodPost, "/v1/sessions/"+view.SessionID+"/messages", view.Token, map[string]string{"text": "online"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Snapshot model.Snapshot `json:"snapshot"`
		Error    string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 0, resp.Snapshot.QuestionIndex)
	last := resp.Snapshot.Transcript[len(resp.Snapshot.Transcript)-1]
	assert.True(t, last.Error)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 1)

	s.startSession(t, "chat")
	rec := s.do(http.MethodPost, "/v1/surveys/s1/sessions", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// unrelated routes are not limited
	rec = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResearcherRequiresToken(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodGet, "/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a respondent token is not a researcher token
	view := s.startSession(t, "chat")
	rec = s.do(http.MethodGet, "/v1/dashboard", view.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardAndDelete(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.login(t)

	rec := s.do(http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Surveys []model.Survey `json:"surveys"`
		Totals  struct {
			Surveys   int `json:"totalSurveys"`
			Responses int `json:"totalResponses"`
			Active    int `json:"activeSurveys"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 1, state.Totals.Surveys)
	assert.Equal(t, 3, state.Totals.Responses)
	assert.Equal(t, 1, state.Totals.Active)

	rec = s.do(http.MethodDelete, "/v1/surveys/s1", token, nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Empty(t, s.backend.deleted)

	rec = s.do(http.MethodDelete, "/v1/surveys/s1?confirm=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1"}, s.backend.deleted)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Empty(t, state.Surveys)
}

func TestGenerateSurvey(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.login(t)

	rec := s.do(http.MethodPost, "/v1/surveys/generate", token, map[string]interface{}{"researchGoal": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter a research goal", decodeError(t, rec))

	rec = s.do(http.MethodPost, "/v1/surveys/generate", token, map[string]interface{}{"researchGoal": "Why carts are abandoned", "numQuestions": 40})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, s.backend.generated, 1)
	assert.Equal(t, model.MaxQuestions, s.backend.generated[0].NumQuestions)
}

func TestInsightsRoutes(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.login(t)

	rec := s.do(http.MethodGet, "/v1/surveys/s1/insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), publicURL+"/survey/s1/take")

	rec = s.do(http.MethodPost, "/v1/surveys/s1/insights/generate", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "No responses yet! Share the survey link first to collect responses.", decodeError(t, rec))

	s.backend.stats = model.SurveyStats{Total: 2, AnswerCount: 4}
	rec = s.do(http.MethodPost, "/v1/surveys/s1/insights/generate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "People want speed")

	rec = s.do(http.MethodGet, "/v1/surveys/missing/insights", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load survey data.")
}

func TestShareAndTranscripts(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.login(t)

	rec := s.do(http.MethodGet, "/v1/surveys/s1/share", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var share struct {
		Link     string `json:"link"`
		WhatsApp string `json:"whatsappUrl"`
		Notice   string `json:"notice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))
	assert.Equal(t, publicURL+"/survey/s1/take", share.Link)
	assert.Equal(t, publicURL+"/survey/s1/whatsapp", share.WhatsApp)
	assert.True(t, strings.HasPrefix(share.Notice, "Survey link copied to clipboard!"))

	rec = s.do(http.MethodGet, "/v1/surveys/s1/transcripts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTakePagePostRedirectGet(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodGet, "/survey/s1/take", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "How do you shop?")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "/survey/s1/take", cookie.Path)
	assert.True(t, cookie.HttpOnly)

	form := url.Values{"answer": {"online"}}
	req := httptest.NewRequest(http.MethodPost, "/survey/s1/take", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/survey/s1/take", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/survey/s1/take", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "What would help?")
	assert.Contains(t, rec.Body.String(), "online")
	assert.Equal(t, 1, s.backend.started)

	// the chat cookie does not carry over to the WhatsApp skin
	req = httptest.NewRequest(http.MethodGet, "/survey/s1/whatsapp", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Type a message")
	assert.Equal(t, 2, s.backend.started)
}

func TestTakePageUnknownSurvey(t *testing.T) {
	s := newTestServer(t, 100)

	rec := s.do(http.MethodGet, "/survey/missing/take", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Survey not found or server error.")
}

func TestTakePagePostWithoutSession(t *testing.T) {
	s := newTestServer(t, 100)

	form := url.Values{"answer": {"online"}}
	req := httptest.NewRequest(http.MethodPost, "/survey/s1/take", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, s.backend.started)
}
