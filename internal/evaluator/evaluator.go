package evaluator

import (
	"fmt"
	"math"

	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// Reason причина пометки параметра как аномального
type Reason string

const (
	// ReasonOutOfRange числовое значение вне диапазона профиля
	ReasonOutOfRange Reason = "out_of_range"
	// ReasonMissing значение отсутствует или не является числом
	ReasonMissing Reason = "missing"
)

// Flags аномальные параметры записи с причинами
type Flags map[string]Reason

// Evaluated запись телеметрии с результатом проверки
type Evaluated struct {
	Record telemetry.Record `json:"record"`
	Flags  Flags            `json:"flags,omitempty"`
}

// Evaluate проверяет запись против профиля. Граничные значения не считаются
// аномальными; NaN помечается отдельной причиной missing.
func Evaluate(rec telemetry.Record, prof profile.MissionProfile) Flags {
	flags := Flags{}
	for _, name := range telemetry.Parameters {
		v := rec.Value(name)
		if math.IsNaN(v) {
			flags[name] = ReasonMissing
			continue
		}
		// Отсутствующая пара границ означает "параметр не проверяется"
		if !prof.Bounds[name].Contains(v) {
			flags[name] = ReasonOutOfRange
		}
	}
	return flags
}

// EvaluateAll проверяет все записи, сохраняя их порядок. Чистая функция:
// одинаковые входы всегда дают одинаковый результат.
func EvaluateAll(records []telemetry.Record, prof profile.MissionProfile) []Evaluated {
	evaluated := make([]Evaluated, len(records))
	for i, rec := range records {
		evaluated[i] = Evaluated{Record: rec, Flags: Evaluate(rec, prof)}
	}
	return evaluated
}

// Alerts формирует человекочитаемые предупреждения по набору проверенных
// записей: по одному сообщению на параметр и направление выхода за диапазон
func Alerts(evaluated []Evaluated, prof profile.MissionProfile) []string {
	var alerts []string

	for _, name := range telemetry.Parameters {
		b := prof.Bounds[name]
		info := telemetry.Fields[name]

		lowViolated := false
		highViolated := false
		missing := 0
		minVal := math.Inf(1)
		maxVal := math.Inf(-1)

		for _, ev := range evaluated {
			reason, ok := ev.Flags[name]
			if !ok {
				continue
			}
			if reason == ReasonMissing {
				missing++
				continue
			}
			v := ev.Record.Value(name)
			if b.Low != nil && v < *b.Low {
				lowViolated = true
				if v < minVal {
					minVal = v
				}
			}
			if b.High != nil && v > *b.High {
				highViolated = true
				if v > maxVal {
					maxVal = v
				}
			}
		}

		if lowViolated {
			alerts = append(alerts, lowAlert(name, info, minVal))
		}
		if highViolated {
			alerts = append(alerts, fmt.Sprintf("High %s detected: %g%s", name, maxVal, unitSuffix(info.Unit)))
		}
		if missing > 0 {
			alerts = append(alerts, fmt.Sprintf("Missing %s readings in %d records", name, missing))
		}
	}

	return alerts
}

// lowAlert текст предупреждения о выходе за нижнюю границу
func lowAlert(name string, info telemetry.FieldInfo, val float64) string {
	switch name {
	case telemetry.ParamBattery:
		return fmt.Sprintf("Battery critically low: %g%%", val)
	case telemetry.ParamFuel:
		return fmt.Sprintf("Fuel critically low: %g%%", val)
	default:
		return fmt.Sprintf("Low %s detected: %g%s", name, val, unitSuffix(info.Unit))
	}
}

// unitSuffix буквенные единицы отделяются пробелом: "0.67 atm", но "-3°C"
func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	c := unit[0]
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return " " + unit
	}
	return unit
}
