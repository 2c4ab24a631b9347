package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RecordsImported количество импортированных записей телеметрии
	RecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_records_imported_total",
			Help: "Total number of telemetry records loaded into sessions",
		},
		[]string{"source"},
	)

	// ImportFailures отклоненные импорты
	ImportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_import_failures_total",
			Help: "Total number of rejected CSV imports",
		},
	)

	// EvaluationsTotal выполненные проходы анализа
	EvaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total number of evaluate+summarize passes",
		},
	)

	// AnomaliesDetected обнаруженные аномалии
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomalies_detected_total",
			Help: "Total number of anomalous parameter values detected",
		},
		[]string{"parameter", "reason"},
	)

	// AnalysisLatency задержка одного прохода анализа
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_latency_seconds",
			Help:    "Analysis processing latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// AnomalyPercent доля аномальных записей по параметрам последнего анализа
	AnomalyPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anomaly_percent",
			Help: "Share of anomalous records per parameter in the last analysis",
		},
		[]string{"parameter"},
	)

	// ActiveSessions активные сессии
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of currently active sessions",
		},
	)

	// ProfileSwitches переключения активного профиля
	ProfileSwitches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_switches_total",
			Help: "Total number of active profile switches",
		},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)
)
