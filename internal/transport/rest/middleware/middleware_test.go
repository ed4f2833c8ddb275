package middleware

import (
	"insightai/internal/metrics"
	"insightai/internal/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", realIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", realIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", realIP(r))
}

func TestRateLimiterPerIP(t *testing.T) {
	l := NewRateLimiter(2)
	defer l.Stop()
	h := l.Limit(ok)

	call := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("a").Code)
	assert.Equal(t, http.StatusNoContent, call("a").Code)
	rec := call("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients keep their own budget
	assert.Equal(t, http.StatusNoContent, call("b").Code)

	l.Stop()
}

func TestRequireSession(t *testing.T) {
	authSvc := service.NewAuthService("admin", "secret", "test-secret", time.Hour)
	m := NewAuthMiddleware(authSvc)

	var gotSession, gotSurvey string
	r := mux.NewRouter()
	r.Handle("/sessions/{sessionId}", m.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = GetSessionID(r.Context())
		gotSurvey = GetSurveyID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	token, err := authSvc.GenerateSessionToken("s1", "sess-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-1?token="+token, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sess-1", gotSession)
	assert.Equal(t, "s1", gotSurvey)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-2?token="+token, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireResearcher(t *testing.T) {
	authSvc := service.NewAuthService("admin", "secret", "test-secret", time.Hour)
	h := NewAuthMiddleware(authSvc).RequireResearcher(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetResearcherID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	login, err := authSvc.Login("admin", "secret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	c := metrics.New("test")
	r := mux.NewRouter()
	r.Use(Metrics(c))
	r.Handle("/sessions/{sessionId}", ok)

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequestsTotal.WithLabelValues("GET", "/sessions/{sessionId}", "204")))
}
