package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AAriam/rdkit/internal/domain/charge"
)

func TestAppMetrics_Standardization(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c, "memory")

	m.ObserveStandardization("reionize+uncharge", "ok", 2*time.Millisecond)
	m.ObserveStandardization("reionize+uncharge", "error", time.Millisecond)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_standardizations_total{operations="reionize+uncharge",status="ok"} 1`)
	assert.Contains(t, out, `test_unit_standardizations_total{operations="reionize+uncharge",status="error"} 1`)
	assert.Contains(t, out, `test_unit_standardization_duration_seconds_count{operations="reionize+uncharge"} 1`)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="memory"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="memory"} 2`)
}

func TestRecordHTTPRequest(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c, "none")

	RecordHTTPRequest(m, "POST", "/api/v1/uncharge", 200, 30*time.Millisecond)
	RecordBatch(m, "http", 12)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",route="/api/v1/uncharge",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_batch_size_sum{source="http"} 12`)
}

func TestChargeEventSink(t *testing.T) {
	c := newTestCollector(t)
	sink := NewChargeEventSink(NewAppMetrics(c, "none"))

	sink.Emit(charge.Event{Kind: charge.EventProtonMoved})
	sink.Emit(charge.Event{Kind: charge.EventProtonMoved})
	sink.Emit(charge.Event{Kind: charge.EventReionizationAborted, Reason: charge.AbortRepeatedPair})

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_charge_events_total{kind="proton_moved",reason=""} 2`)
	assert.Contains(t, out, `test_unit_charge_events_total{kind="reionization_aborted",reason="repeated_pair"} 1`)
}
