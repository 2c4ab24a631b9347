package telemetry

import (
	"encoding/json"
	"math"
	"time"
)

// TimestampLayout формат временной метки во входном CSV (без часового пояса)
const TimestampLayout = "02-01-2006 15:04"

// Имена пяти контролируемых параметров
const (
	ParamTemperature = "temperature"
	ParamPressure    = "pressure"
	ParamVelocity    = "velocity"
	ParamBattery     = "battery"
	ParamFuel        = "fuel"
)

// Parameters фиксированный порядок параметров (совпадает с порядком колонок CSV)
var Parameters = []string{
	ParamTemperature,
	ParamPressure,
	ParamVelocity,
	ParamBattery,
	ParamFuel,
}

// FieldInfo метаданные параметра для сообщений и графиков
type FieldInfo struct {
	Label string
	Unit  string
}

// Fields метаданные по каждому параметру
var Fields = map[string]FieldInfo{
	ParamTemperature: {Label: "Temperature", Unit: "°C"},
	ParamPressure:    {Label: "Pressure", Unit: "atm"},
	ParamVelocity:    {Label: "Velocity", Unit: "m/s"},
	ParamBattery:     {Label: "Battery Level", Unit: "%"},
	ParamFuel:        {Label: "Fuel Level", Unit: "%"},
}

// Record одно показание телеметрии; после создания не изменяется
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
	Velocity    float64   `json:"velocity"`
	Battery     float64   `json:"battery"`
	Fuel        float64   `json:"fuel"`
}

// MarshalJSON сериализует запись, заменяя NaN на null: стандартный encoder
// отклоняет NaN целиком, а отсутствующее значение должно доходить до клиента
func (r Record) MarshalJSON() ([]byte, error) {
	out := struct {
		Timestamp   time.Time `json:"timestamp"`
		Temperature *float64  `json:"temperature"`
		Pressure    *float64  `json:"pressure"`
		Velocity    *float64  `json:"velocity"`
		Battery     *float64  `json:"battery"`
		Fuel        *float64  `json:"fuel"`
	}{
		Timestamp:   r.Timestamp,
		Temperature: jsonValue(r.Temperature),
		Pressure:    jsonValue(r.Pressure),
		Velocity:    jsonValue(r.Velocity),
		Battery:     jsonValue(r.Battery),
		Fuel:        jsonValue(r.Fuel),
	}
	return json.Marshal(out)
}

func jsonValue(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Value возвращает значение параметра по имени; NaN для неизвестного имени
func (r Record) Value(param string) float64 {
	switch param {
	case ParamTemperature:
		return r.Temperature
	case ParamPressure:
		return r.Pressure
	case ParamVelocity:
		return r.Velocity
	case ParamBattery:
		return r.Battery
	case ParamFuel:
		return r.Fuel
	default:
		return math.NaN()
	}
}
