package summary_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacecraft-telemetry-analyzer/internal/evaluator"
	"spacecraft-telemetry-analyzer/internal/summary"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// evaluated строит запись с заданными пометками
func evaluated(ts time.Time, flags evaluator.Flags) evaluator.Evaluated {
	return evaluator.Evaluated{
		Record: telemetry.Record{Timestamp: ts, Temperature: 20, Pressure: 1, Velocity: 1200, Battery: 90, Fuel: 80},
		Flags:  flags,
	}
}

func ts(minute int) time.Time {
	return time.Date(2025, 4, 25, 9, minute, 0, 0, time.UTC)
}

func TestSummarize_EmptyDataset(t *testing.T) {
	s := summary.Summarize(nil, summary.DefaultHealthConfig())

	assert.Equal(t, 0, s.TotalRecords)
	assert.Nil(t, s.TimeRange)
	assert.Equal(t, summary.HealthNominal, s.Health)
	for _, name := range telemetry.Parameters {
		assert.Equal(t, 0.0, s.Parameters[name].Percent)
	}
}

func TestSummarize_CountsAndPercentages(t *testing.T) {
	evs := []evaluator.Evaluated{
		evaluated(ts(0), evaluator.Flags{}),
		evaluated(ts(5), evaluator.Flags{telemetry.ParamTemperature: evaluator.ReasonOutOfRange}),
	}

	s := summary.Summarize(evs, summary.DefaultHealthConfig())

	assert.Equal(t, 2, s.TotalRecords)
	require.NotNil(t, s.TimeRange)
	assert.Equal(t, ts(0), s.TimeRange.From)
	assert.Equal(t, ts(5), s.TimeRange.To)

	temp := s.Parameters[telemetry.ParamTemperature]
	assert.Equal(t, 1, temp.OutOfRange)
	assert.Equal(t, 0, temp.Missing)
	assert.Equal(t, 50.0, temp.Percent)

	for _, name := range telemetry.Parameters {
		stat := s.Parameters[name]
		assert.GreaterOrEqual(t, stat.Percent, 0.0)
		assert.LessOrEqual(t, stat.Percent, 100.0)
	}
}

func TestSummarize_MissingCountedSeparately(t *testing.T) {
	evs := []evaluator.Evaluated{
		evaluated(ts(0), evaluator.Flags{telemetry.ParamFuel: evaluator.ReasonMissing}),
		evaluated(ts(5), evaluator.Flags{telemetry.ParamFuel: evaluator.ReasonOutOfRange}),
	}

	s := summary.Summarize(evs, summary.DefaultHealthConfig())

	fuel := s.Parameters[telemetry.ParamFuel]
	assert.Equal(t, 1, fuel.OutOfRange)
	assert.Equal(t, 1, fuel.Missing)
	assert.Equal(t, 100.0, fuel.Percent)
}

func TestSummarize_HealthClassification(t *testing.T) {
	cfg := summary.DefaultHealthConfig()

	flag := evaluator.Flags{telemetry.ParamBattery: evaluator.ReasonOutOfRange}
	clean := evaluator.Flags{}

	build := func(flagged, total int) []evaluator.Evaluated {
		evs := make([]evaluator.Evaluated, 0, total)
		for i := 0; i < total; i++ {
			f := clean
			if i < flagged {
				f = flag
			}
			evs = append(evs, evaluated(ts(i), f))
		}
		return evs
	}

	// 4% — nominal, 10% — warning, 25% — critical
	assert.Equal(t, summary.HealthNominal, summary.Summarize(build(4, 100), cfg).Health)
	assert.Equal(t, summary.HealthWarning, summary.Summarize(build(10, 100), cfg).Health)
	assert.Equal(t, summary.HealthCritical, summary.Summarize(build(25, 100), cfg).Health)

	// Ровно на пороге классификация не повышается
	assert.Equal(t, summary.HealthNominal, summary.Summarize(build(5, 100), cfg).Health)
	assert.Equal(t, summary.HealthWarning, summary.Summarize(build(20, 100), cfg).Health)
}

func TestSummarize_LastValues(t *testing.T) {
	evs := []evaluator.Evaluated{
		evaluated(ts(0), evaluator.Flags{}),
		evaluated(ts(5), evaluator.Flags{}),
	}
	evs[1].Record.Battery = 42

	s := summary.Summarize(evs, summary.DefaultHealthConfig())
	assert.Equal(t, 42.0, s.LastValues[telemetry.ParamBattery])
	assert.Equal(t, 20.0, s.LastValues[telemetry.ParamTemperature])
}
