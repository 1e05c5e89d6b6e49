package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/c/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})

	for _, slug := range []string{"a", "b", "c"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/c/"+slug, nil))
		require.Equal(t, http.StatusFound, resp.Code)
	}

	require.Equal(t, float64(3), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/c/{slug}", "302")))
}

func TestCountersAndHandler(t *testing.T) {
	t.Parallel()

	m := New("test")
	m.LeadSubmission("created")
	m.LeadSubmission("created")
	m.LeadSubmission("duplicate")
	m.WebhookDelivery("new_lead", "failed", 20*time.Millisecond)
	m.AuthOutcome("expired")
	m.OwnerNotification("published")

	require.Equal(t, float64(2), testutil.ToFloat64(m.leadSubmissions.WithLabelValues("created")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.webhookDeliveries.WithLabelValues("new_lead", "failed")))

	resp := httptest.NewRecorder()
	m.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, strings.Contains(resp.Body.String(), "test_auth_outcomes_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.LeadSubmission("created")
	m.WebhookDelivery("new_lead", "delivered", time.Second)
	m.AuthOutcome("ok")
	m.OwnerNotification("published")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	resp := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
}
