package summary

import (
	"math"
	"time"

	"spacecraft-telemetry-analyzer/internal/evaluator"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// Классификация состояния системы
const (
	HealthNominal  = "nominal"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// HealthConfig процентные пороги классификации состояния
type HealthConfig struct {
	WarningPercent  float64
	CriticalPercent float64
}

// DefaultHealthConfig пороги по умолчанию: warning от 5%, critical от 20%
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{WarningPercent: 5, CriticalPercent: 20}
}

// ParameterStat статистика аномалий одного параметра
type ParameterStat struct {
	OutOfRange int     `json:"out_of_range"`
	Missing    int     `json:"missing"`
	Percent    float64 `json:"percent"`
}

// TimeRange границы временного диапазона набора данных
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Summary агрегированный результат анализа набора данных
type Summary struct {
	TotalRecords int                      `json:"total_records"`
	TimeRange    *TimeRange               `json:"time_range,omitempty"`
	Parameters   map[string]ParameterStat `json:"parameters"`
	LastValues   map[string]float64       `json:"last_values,omitempty"`
	Health       string                   `json:"health"`
}

// Summarize сводит проверенные записи в статистику по параметрам.
// Пустой набор дает нулевые проценты и состояние nominal.
func Summarize(evaluated []evaluator.Evaluated, cfg HealthConfig) Summary {
	s := Summary{
		TotalRecords: len(evaluated),
		Parameters:   make(map[string]ParameterStat, len(telemetry.Parameters)),
		Health:       HealthNominal,
	}

	for _, name := range telemetry.Parameters {
		s.Parameters[name] = ParameterStat{}
	}
	if len(evaluated) == 0 {
		return s
	}

	first := evaluated[0].Record.Timestamp
	last := evaluated[len(evaluated)-1].Record.Timestamp
	s.TimeRange = &TimeRange{From: first, To: last}

	for _, ev := range evaluated {
		for name, reason := range ev.Flags {
			stat := s.Parameters[name]
			if reason == evaluator.ReasonMissing {
				stat.Missing++
			} else {
				stat.OutOfRange++
			}
			s.Parameters[name] = stat
		}
	}

	total := float64(len(evaluated))
	worst := 0.0
	for name, stat := range s.Parameters {
		stat.Percent = float64(stat.OutOfRange+stat.Missing) / total * 100
		s.Parameters[name] = stat
		if stat.Percent > worst {
			worst = stat.Percent
		}
	}

	switch {
	case worst > cfg.CriticalPercent:
		s.Health = HealthCritical
	case worst > cfg.WarningPercent:
		s.Health = HealthWarning
	}

	s.LastValues = make(map[string]float64, len(telemetry.Parameters))
	lastRec := evaluated[len(evaluated)-1].Record
	for _, name := range telemetry.Parameters {
		// NaN не сериализуется в JSON, пропускаем отсутствующие значения
		if v := lastRec.Value(name); !math.IsNaN(v) {
			s.LastValues[name] = v
		}
	}

	return s
}
