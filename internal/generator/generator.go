package generator

import (
	"math"
	"math/rand"
	"time"

	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// Options параметры синтетического потока телеметрии
type Options struct {
	Count       int
	Start       time.Time
	Interval    time.Duration
	Seed        int64
	AnomalyRate float64                // доля записей, выталкиваемых за диапазон
	Reference   profile.MissionProfile // профиль, границы которого нарушают инъекции
}

// Базовые уровни симулируемых величин
const (
	baseTemperature = 22.0
	basePressure    = 1.0
	baseVelocity    = 1200.0
	startBattery    = 95.0
	startFuel       = 90.0
)

// Generate строит ряд записей с монотонно возрастающими метками времени.
// Значения складываются из плавного дрейфа и ограниченного шума; заданная
// доля записей намеренно выводится за границы опорного профиля.
// Один и тот же seed всегда дает одну и ту же последовательность.
func Generate(opts Options) []telemetry.Record {
	if opts.Count <= 0 {
		return nil
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	records := make([]telemetry.Record, 0, opts.Count)

	// Параметры с хотя бы одной границей — кандидаты для инъекции аномалий
	var injectable []string
	for _, name := range telemetry.Parameters {
		b := opts.Reference.Bounds[name]
		if b.Low != nil || b.High != nil {
			injectable = append(injectable, name)
		}
	}

	n := float64(opts.Count)
	for i := 0; i < opts.Count; i++ {
		t := float64(i)
		rec := telemetry.Record{
			Timestamp:   opts.Start.Add(time.Duration(i) * opts.Interval),
			Temperature: baseTemperature + 6*math.Sin(2*math.Pi*t/48) + noise(rng, 1.5),
			Pressure:    clamp(basePressure+0.05*math.Sin(2*math.Pi*t/60+1)+noise(rng, 0.02), 0, math.Inf(1)),
			Velocity:    clamp(baseVelocity+40*math.Sin(2*math.Pi*t/90)+noise(rng, 15), 0, math.Inf(1)),
			Battery:     clamp(startBattery-30*t/n+noise(rng, 1), 0, 100),
			Fuel:        clamp(startFuel-40*t/n+noise(rng, 1.5), 0, 100),
		}

		if len(injectable) > 0 && rng.Float64() < opts.AnomalyRate {
			inject(rng, &rec, injectable[rng.Intn(len(injectable))], opts.Reference)
		}

		records = append(records, rec)
	}
	return records
}

// inject выталкивает один параметр записи за границу опорного профиля
func inject(rng *rand.Rand, rec *telemetry.Record, param string, ref profile.MissionProfile) {
	b := ref.Bounds[param]

	var v float64
	switch {
	case b.Low != nil && (b.High == nil || rng.Intn(2) == 0):
		v = *b.Low - 1 - rng.Float64()*19
	case b.High != nil:
		v = *b.High + 1 + rng.Float64()*19
	default:
		return
	}

	switch param {
	case telemetry.ParamTemperature:
		rec.Temperature = v
	case telemetry.ParamPressure:
		rec.Pressure = math.Max(v, 0)
	case telemetry.ParamVelocity:
		rec.Velocity = math.Max(v, 0)
	case telemetry.ParamBattery:
		rec.Battery = clamp(v, 0, 100)
	case telemetry.ParamFuel:
		rec.Fuel = clamp(v, 0, 100)
	}
}

// noise равномерный шум в пределах ±amplitude
func noise(rng *rand.Rand, amplitude float64) float64 {
	return (rng.Float64()*2 - 1) * amplitude
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
