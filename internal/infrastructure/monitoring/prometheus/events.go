package prometheus

import "github.com/AAriam/rdkit/internal/domain/charge"

// ChargeEventSink counts charge events by kind and abort reason.
type ChargeEventSink struct {
	events CounterVec
}

func NewChargeEventSink(m *AppMetrics) *ChargeEventSink {
	return &ChargeEventSink{events: m.ChargeEventsTotal}
}

func (s *ChargeEventSink) Emit(ev charge.Event) {
	s.events.WithLabelValues(string(ev.Kind), string(ev.Reason)).Inc()
}

var _ charge.EventSink = (*ChargeEventSink)(nil)
