package middleware

import (
	"net/http"
	"time"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, durations and in-flight requests. Routes
// are labelled by chi pattern so path parameters do not explode cardinality.
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active := m.HTTPActiveRequests.WithLabelValues()
			active.Inc()
			defer active.Dec()

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			prometheus.RecordHTTPRequest(m, r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}
