package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	c := New("insightai")

	c.RecordAnswer("chat")
	c.RecordAnswer("chat")
	c.RecordFollowUp("whatsapp")
	c.SessionOpened("chat")
	c.SessionOpened("chat")
	c.SessionClosed("chat")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Answers.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FollowUps.WithLabelValues("whatsapp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveSessions.WithLabelValues("chat")))
}

func TestCollectorHandler(t *testing.T) {
	c := New("insightai")
	c.RecordHTTPRequest(http.MethodGet, "/v1/health", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `insightai_http_requests_total{method="GET",path="/v1/health",status_code="200"} 1`)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAnswer("chat")
		c.RecordHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	})
}
