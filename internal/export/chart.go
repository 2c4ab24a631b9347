package export

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// ParameterChart рисует PNG график одного параметра во времени с пунктирными
// линиями порогов профиля, как на вкладках исходного дашборда
func ParameterChart(records []telemetry.Record, param string, bounds profile.Bounds) ([]byte, error) {
	info, ok := telemetry.Fields[param]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", param)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("chart requires at least two records, got %d", len(records))
	}

	xs := make([]time.Time, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, rec := range records {
		v := rec.Value(param)
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, rec.Timestamp)
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("chart requires at least two numeric %s values", param)
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    info.Label,
			XValues: xs,
			YValues: ys,
		},
	}
	if bounds.Low != nil {
		series = append(series, thresholdSeries("low threshold", xs, *bounds.Low))
	}
	if bounds.High != nil {
		series = append(series, thresholdSeries("high threshold", xs, *bounds.High))
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Over Time", info.Label),
		Width:  900,
		Height: 450,
		YAxis: chart.YAxis{
			Name: info.Unit,
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// thresholdSeries горизонтальная пунктирная линия порога
func thresholdSeries(name string, xs []time.Time, value float64) chart.TimeSeries {
	return chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor:     chart.ColorRed,
			StrokeDashArray: []float64{5.0, 5.0},
		},
		XValues: []time.Time{xs[0], xs[len(xs)-1]},
		YValues: []float64{value, value},
	}
}
