package charge

import (
	"sync"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
)

// EventKind names a mutation or decision taken by the standardizers.
type EventKind string

const (
	EventChargeCorrected     EventKind = "charge_corrected"
	EventAcidDeprotonated    EventKind = "acid_deprotonated"
	EventProtonMoved         EventKind = "proton_moved"
	EventReionizationAborted EventKind = "reionization_aborted"
	EventNegativeNeutralized EventKind = "negative_neutralized"
	EventNegativeSkipped     EventKind = "negative_skipped"
	EventPositiveNeutralized EventKind = "positive_neutralized"
)

// Abort reasons carried by EventReionizationAborted.
const (
	AbortSameAtom     = "same_atom"
	AbortRepeatedPair = "repeated_pair"
)

// Event is one structured diagnostic. Fields that do not apply to a kind
// are left at their zero value; Partner, Rank and PartnerRank use -1 for
// "not applicable".
type Event struct {
	Kind           EventKind `json:"kind"`
	Rule           string    `json:"rule,omitempty"`
	Atom           int       `json:"atom"`
	Partner        int       `json:"partner"`
	Rank           int       `json:"rank"`
	PartnerRank    int       `json:"partner_rank"`
	Charge         int       `json:"charge"`
	PreviousCharge int       `json:"previous_charge"`
	Reason         string    `json:"reason,omitempty"`
}

// EventSink receives events as they happen. Implementations must be safe
// for concurrent use when a component is shared across goroutines.
type EventSink interface {
	Emit(Event)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// LogSink writes events to a logger at debug level.
type LogSink struct {
	Logger logging.Logger
}

// NewLogSink returns a sink bound to logger, or to the process default
// logger when logger is nil.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{Logger: logger.Named("charge")}
}

func (s *LogSink) Emit(e Event) {
	fields := []logging.Field{
		logging.String("kind", string(e.Kind)),
		logging.Int("atom", e.Atom),
	}
	if e.Rule != "" {
		fields = append(fields, logging.String("rule", e.Rule))
	}
	if e.Partner >= 0 {
		fields = append(fields, logging.Int("partner", e.Partner))
	}
	if e.Rank >= 0 {
		fields = append(fields, logging.Int("rank", e.Rank))
	}
	if e.PartnerRank >= 0 {
		fields = append(fields, logging.Int("partner_rank", e.PartnerRank))
	}
	if e.Reason != "" {
		fields = append(fields, logging.String("reason", e.Reason))
	}
	fields = append(fields,
		logging.Int("charge", e.Charge),
		logging.Int("previous_charge", e.PreviousCharge),
	)
	s.Logger.Debug(eventMessage(e.Kind), fields...)
}

func eventMessage(k EventKind) string {
	switch k {
	case EventChargeCorrected:
		return "applied charge correction"
	case EventAcidDeprotonated:
		return "ionized acid to balance charge corrections"
	case EventProtonMoved:
		return "moved proton"
	case EventReionizationAborted:
		return "aborted reionization"
	case EventNegativeNeutralized:
		return "removed negative charge"
	case EventNegativeSkipped:
		return "kept negative charge"
	case EventPositiveNeutralized:
		return "removed positive charge"
	default:
		return string(k)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
