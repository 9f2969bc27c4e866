package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/prometheus"
	"github.com/AAriam/rdkit/internal/testutil"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ContextGetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ContextGetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-42", seen)
	assert.Equal(t, "client-42", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestContextGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, ContextGetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func newLoggedRouter(logger logging.Logger, cfg LoggingConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogging(logger, cfg))
	r.Get("/ok/{id}", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "fine") })
	r.Get("/bad", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadRequest) })
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	r.Get("/slow", func(w http.ResponseWriter, _ *http.Request) { time.Sleep(5 * time.Millisecond) })
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
	return r
}

func TestRequestLogging_Levels(t *testing.T) {
	logger := testutil.NewMockLogger()
	h := newLoggedRouter(logger, LoggingConfig{SkipPaths: []string{"/healthz"}, SlowThreshold: 3 * time.Millisecond})

	for _, path := range []string{"/ok/7", "/bad", "/boom", "/slow", "/healthz"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1, logger.Count("info", "HTTP request completed"))
	assert.Equal(t, 1, logger.Count("warn", "HTTP request completed with client error"))
	assert.Equal(t, 1, logger.Count("error", "HTTP request completed with server error"))
	assert.Equal(t, 1, logger.Count("warn", "HTTP request completed (slow)"))
	assert.Len(t, logger.GetMessages(), 4)

	route, ok := logger.Field("HTTP request completed", "route")
	require.True(t, ok)
	assert.Equal(t, "/ok/{id}", route)
	bytes, _ := logger.Field("HTTP request completed", "bytes")
	assert.Equal(t, int64(4), bytes)
	status, _ := logger.Field("HTTP request completed with server error", "status")
	assert.Equal(t, http.StatusBadGateway, status)
	id, _ := logger.Field("HTTP request completed", "request_id")
	assert.NotEmpty(t, id)
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "chargefix"}, testutil.NewMockLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector, "none")

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Post("/api/v1/{op}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/uncharge", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `chargefix_http_requests_total{method="POST",route="/api/v1/{op}",status_code="202"} 1`)
	assert.Contains(t, body, `chargefix_http_requests_total{method="GET",route="unmatched",status_code="404"} 1`)
	assert.Contains(t, body, `chargefix_http_active_requests 0`)
}
