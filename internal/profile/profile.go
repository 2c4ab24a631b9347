package profile

import (
	"fmt"

	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// Bounds допустимый диапазон параметра; nil означает отсутствие границы
type Bounds struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// Contains проверяет вхождение значения в диапазон (границы включительно)
func (b Bounds) Contains(v float64) bool {
	if b.Low != nil && v < *b.Low {
		return false
	}
	if b.High != nil && v > *b.High {
		return false
	}
	return true
}

// MissionProfile именованный набор диапазонов по всем пяти параметрам
type MissionProfile struct {
	Name   string            `json:"name"`
	Bounds map[string]Bounds `json:"bounds"`
}

// Clone возвращает независимую копию профиля
func (p MissionProfile) Clone() MissionProfile {
	bounds := make(map[string]Bounds, len(p.Bounds))
	for name, b := range p.Bounds {
		c := Bounds{}
		if b.Low != nil {
			v := *b.Low
			c.Low = &v
		}
		if b.High != nil {
			v := *b.High
			c.High = &v
		}
		bounds[name] = c
	}
	return MissionProfile{Name: p.Name, Bounds: bounds}
}

// NotFoundError запрошен неизвестный профиль
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile %q not found", e.Name)
}

// ValidationError профиль нарушает ограничения модели
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile: %s", e.Reason)
}

// ValidateBounds требует ровно пять известных параметров и low <= high для каждого
func ValidateBounds(bounds map[string]Bounds) error {
	for _, name := range telemetry.Parameters {
		b, ok := bounds[name]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("parameter %q is missing", name)}
		}
		if b.Low != nil && b.High != nil && *b.Low > *b.High {
			return &ValidationError{Reason: fmt.Sprintf("parameter %q: lower bound %g exceeds upper bound %g", name, *b.Low, *b.High)}
		}
	}
	if len(bounds) != len(telemetry.Parameters) {
		for name := range bounds {
			if _, ok := telemetry.Fields[name]; !ok {
				return &ValidationError{Reason: fmt.Sprintf("unknown parameter %q", name)}
			}
		}
	}
	return nil
}
