package charge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
)

func TestLogSink_WritesDebugEntries(t *testing.T) {
	buf := &zaptest.Buffer{}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{MessageKey: "msg", NameKey: "logger", LevelKey: "level", EncodeLevel: zapcore.LowercaseLevelEncoder})
	sink := NewLogSink(logging.NewLoggerFromCore(zapcore.NewCore(enc, buf, zapcore.DebugLevel)))

	sink.Emit(Event{
		Kind:        EventProtonMoved,
		Rule:        "-CO2H -> phenol",
		Atom:        3,
		Partner:     9,
		Rank:        6,
		PartnerRank: 16,
		Charge:      -1,
	})
	sink.Emit(Event{Kind: EventNegativeNeutralized, Atom: 2, Partner: -1, Rank: -1, PartnerRank: -1})

	lines := buf.Lines()
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], `"msg":"moved proton"`)
		assert.Contains(t, lines[0], `"logger":"charge"`)
		assert.Contains(t, lines[0], `"level":"debug"`)
		assert.Contains(t, lines[0], `"partner":9`)
		assert.Contains(t, lines[0], `"rule":"-CO2H -> phenol"`)
		assert.NotContains(t, lines[1], `"partner"`)
		assert.NotContains(t, lines[1], `"rank"`)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	var calls int
	sink := MultiSink{a, nil, b, EventSinkFunc(func(Event) { calls++ })}

	sink.Emit(Event{Kind: EventChargeCorrected})
	sink.Emit(Event{Kind: EventProtonMoved})

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.Events(), 2)
	assert.Equal(t, 2, calls)
	NopSink{}.Emit(Event{})
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec.Emit(Event{Kind: EventPositiveNeutralized})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, rec.Count(EventPositiveNeutralized))
	assert.Equal(t, 0, rec.Count(EventProtonMoved))

	rec.Reset()
	assert.Empty(t, rec.Events())
}
