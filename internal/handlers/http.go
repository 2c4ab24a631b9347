package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"spacecraft-telemetry-analyzer/internal/cache"
	"spacecraft-telemetry-analyzer/internal/evaluator"
	"spacecraft-telemetry-analyzer/internal/export"
	"spacecraft-telemetry-analyzer/internal/generator"
	"spacecraft-telemetry-analyzer/internal/metrics"
	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/session"
	"spacecraft-telemetry-analyzer/internal/summary"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

// Ограничения генератора синтетических данных
const (
	defaultSimCount    = 100
	maxSimCount        = 100000
	defaultSimInterval = 5
	defaultAnomalyRate = 0.2
)

// Handler обработчик HTTP запросов
type Handler struct {
	sessions *session.Registry
	profiles *profile.Store
	cache    *cache.RedisStore // nil, если персистентность отключена
	health   summary.HealthConfig
}

// NewHandler создает новый обработчик
func NewHandler(sessions *session.Registry, profiles *profile.Store, redisStore *cache.RedisStore, health summary.HealthConfig) *Handler {
	return &Handler{
		sessions: sessions,
		profiles: profiles,
		cache:    redisStore,
		health:   health,
	}
}

// Routes собирает маршруты сервиса
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", h.CreateSession)
	mux.HandleFunc("POST /session/{id}/upload", h.UploadCSV)
	mux.HandleFunc("POST /session/{id}/simulate", h.Simulate)
	mux.HandleFunc("PUT /session/{id}/profile", h.SwitchProfile)
	mux.HandleFunc("GET /session/{id}/analysis", h.GetAnalysis)
	mux.HandleFunc("GET /session/{id}/records", h.GetRecords)
	mux.HandleFunc("GET /session/{id}/history", h.GetHistory)
	mux.HandleFunc("GET /session/{id}/export/excel", h.ExportExcel)
	mux.HandleFunc("GET /session/{id}/export/chart", h.ExportChart)
	mux.HandleFunc("GET /profiles", h.ListProfiles)
	mux.HandleFunc("GET /profiles/{name}", h.GetProfile)
	mux.HandleFunc("POST /profiles", h.SaveProfile)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /stats", h.GetStats)

	return mux
}

// CreateSession обрабатывает POST /session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	defer observe(r.Method, "/session", time.Now())

	sess := h.sessions.Create(profile.DefaultProfile)

	metrics.RequestsTotal.WithLabelValues(r.Method, "/session", "201").Inc()
	writeJSON(w, http.StatusCreated, sess)
}

// UploadCSV обрабатывает POST /session/{id}/upload: импорт CSV файла.
// Любая некорректная строка отклоняет импорт целиком; прежний набор данных
// сессии при этом не затрагивается.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/upload"
	defer observe(r.Method, endpoint, time.Now())

	id := r.PathValue("id")
	if _, err := h.sessions.Get(id); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, endpoint, &telemetry.ParseError{Row: 0, Reason: `multipart field "file" is required`})
		return
	}

	// Поток читается полностью и освобождается до начала анализа
	records, parseErr := telemetry.ParseCSV(file)
	file.Close()
	if parseErr != nil {
		metrics.ImportFailures.Inc()
		h.writeError(w, r, endpoint, parseErr)
		return
	}

	if err := h.sessions.SetDataset(id, records, session.SourceUpload); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	metrics.RecordsImported.WithLabelValues(session.SourceUpload).Add(float64(len(records)))
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "loaded",
		"records": len(records),
	})
}

// simulateRequest параметры POST /session/{id}/simulate
type simulateRequest struct {
	Count            int     `json:"count"`
	Start            string  `json:"start"` // DD-MM-YYYY HH:MM; пусто = откат от текущего момента
	IntervalMinutes  int     `json:"interval_minutes"`
	Seed             int64   `json:"seed"`
	AnomalyRate      float64 `json:"anomaly_rate"`
	ReferenceProfile string  `json:"reference_profile"`
}

// Simulate обрабатывает POST /session/{id}/simulate: загружает в сессию
// синтетический набор данных вместо файла
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/simulate"
	defer observe(r.Method, endpoint, time.Now())

	id := r.PathValue("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	req := simulateRequest{
		Count:           defaultSimCount,
		IntervalMinutes: defaultSimInterval,
		AnomalyRate:     defaultAnomalyRate,
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	if req.Count <= 0 || req.Count > maxSimCount {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count must be within 1.." + strconv.Itoa(maxSimCount)})
		return
	}
	if req.IntervalMinutes <= 0 {
		req.IntervalMinutes = defaultSimInterval
	}
	if req.AnomalyRate < 0 || req.AnomalyRate > 1 {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "anomaly_rate must be within 0..1"})
		return
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	refName := req.ReferenceProfile
	if refName == "" {
		refName = sess.ActiveProfile
	}
	ref, err := h.profiles.Get(refName)
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	start := time.Now().Add(-time.Duration(req.Count*req.IntervalMinutes) * time.Minute).Truncate(time.Minute)
	if req.Start != "" {
		start, err = time.Parse(telemetry.TimestampLayout, req.Start)
		if err != nil {
			h.writeError(w, r, endpoint, &telemetry.ParseError{Row: 0, Reason: "bad start timestamp, expected DD-MM-YYYY HH:MM"})
			return
		}
	}

	records := generator.Generate(generator.Options{
		Count:       req.Count,
		Start:       start,
		Interval:    time.Duration(req.IntervalMinutes) * time.Minute,
		Seed:        req.Seed,
		AnomalyRate: req.AnomalyRate,
		Reference:   ref,
	})

	if err := h.sessions.SetDataset(id, records, session.SourceSimulated); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	metrics.RecordsImported.WithLabelValues(session.SourceSimulated).Add(float64(len(records)))
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "generated",
		"records":           len(records),
		"seed":              req.Seed,
		"reference_profile": refName,
	})
}

// SwitchProfile обрабатывает PUT /session/{id}/profile
func (h *Handler) SwitchProfile(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/profile"
	defer observe(r.Method, endpoint, time.Now())

	id := r.PathValue("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// Профиль должен существовать до переключения
	if _, err := h.profiles.Get(req.Name); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}
	if err := h.sessions.SetProfile(id, req.Name); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	metrics.ProfileSwitches.Inc()
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "switched",
		"active_profile": req.Name,
	})
}

// GetAnalysis обрабатывает GET /session/{id}/analysis: один полный проход
// evaluate+summarize по текущему набору данных. Результат не кэшируется
// между переключениями профилей.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/analysis"
	defer observe(r.Method, endpoint, time.Now())

	sess, prof, err := h.sessionProfile(r)
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	analysisStart := time.Now()
	evaluated := evaluator.EvaluateAll(sess.Records, prof)
	sum := summary.Summarize(evaluated, h.health)
	alerts := evaluator.Alerts(evaluated, prof)
	metrics.AnalysisLatency.Observe(time.Since(analysisStart).Seconds())
	metrics.EvaluationsTotal.Inc()

	for name, stat := range sum.Parameters {
		metrics.AnomalyPercent.WithLabelValues(name).Set(stat.Percent)
		if stat.OutOfRange > 0 {
			metrics.AnomaliesDetected.WithLabelValues(name, string(evaluator.ReasonOutOfRange)).Add(float64(stat.OutOfRange))
		}
		if stat.Missing > 0 {
			metrics.AnomaliesDetected.WithLabelValues(name, string(evaluator.ReasonMissing)).Add(float64(stat.Missing))
		}
	}

	// Сохраняем снимок в Redis асинхронно, не блокируя ответ
	if h.cache != nil {
		go func(id string, s summary.Summary) {
			if err := h.cache.StoreSummary(id, time.Now(), s); err == nil {
				metrics.RedisOperations.WithLabelValues("store_summary", "success").Inc()
			} else {
				metrics.RedisOperations.WithLabelValues("store_summary", "error").Inc()
			}
		}(sess.ID, sum)
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":     sess.ID,
		"active_profile": sess.ActiveProfile,
		"source":         sess.Source,
		"summary":        sum,
		"alerts":         alerts,
	})
}

// GetRecords обрабатывает GET /session/{id}/records: записи с пометками
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/records"
	defer observe(r.Method, endpoint, time.Now())

	sess, prof, err := h.sessionProfile(r)
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	evaluated := evaluator.EvaluateAll(sess.Records, prof)

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":     sess.ID,
		"active_profile": sess.ActiveProfile,
		"records":        evaluated,
	})
}

// GetHistory обрабатывает GET /session/{id}/history: последние снимки
// анализа из Redis
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/history"
	defer observe(r.Method, endpoint, time.Now())

	id := r.PathValue("id")
	if _, err := h.sessions.Get(id); err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	history := []json.RawMessage{}
	if h.cache != nil {
		snapshots, err := h.cache.RecentSummaries(id, 10)
		if err != nil {
			metrics.RedisOperations.WithLabelValues("get_history", "error").Inc()
			metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "500").Inc()
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve history"})
			return
		}
		metrics.RedisOperations.WithLabelValues("get_history", "success").Inc()
		history = append(history, snapshots...)
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"history":    history,
	})
}

// ExportExcel обрабатывает GET /session/{id}/export/excel
func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/export/excel"
	defer observe(r.Method, endpoint, time.Now())

	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}
	if len(sess.Records) == 0 {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session has no dataset loaded"})
		return
	}

	buf, err := export.ExcelReport(sess.Records)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "500").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build report"})
		return
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="spacecraft_telemetry_analysis.xlsx"`)
	w.Write(buf.Bytes())
}

// ExportChart обрабатывает GET /session/{id}/export/chart?parameter=...
func (h *Handler) ExportChart(w http.ResponseWriter, r *http.Request) {
	endpoint := "/session/{id}/export/chart"
	defer observe(r.Method, endpoint, time.Now())

	sess, prof, err := h.sessionProfile(r)
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	param := r.URL.Query().Get("parameter")
	if param == "" {
		param = telemetry.ParamTemperature
	}

	png, err := export.ParameterChart(sess.Records, param, prof.Bounds[param])
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+param+`_graph.png"`)
	w.Write(png)
}

// ListProfiles обрабатывает GET /profiles
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	defer observe(r.Method, "/profiles", time.Now())

	metrics.RequestsTotal.WithLabelValues(r.Method, "/profiles", "200").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": h.profiles.List(),
	})
}

// GetProfile обрабатывает GET /profiles/{name}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	endpoint := "/profiles/{name}"
	defer observe(r.Method, endpoint, time.Now())

	p, err := h.profiles.Get(r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, endpoint, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()
	writeJSON(w, http.StatusOK, p)
}

// saveProfileRequest тело POST /profiles
type saveProfileRequest struct {
	Name   string                    `json:"name"`
	Bounds map[string]profile.Bounds `json:"bounds"`
}

// SaveProfile обрабатывает POST /profiles: сохраняет пользовательский профиль
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	defer observe(r.Method, "/profiles", time.Now())

	var req saveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues(r.Method, "/profiles", "400").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.profiles.Save(req.Name, req.Bounds); err != nil {
		h.writeError(w, r, "/profiles", err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, "/profiles", "201").Inc()
	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "saved",
		"name":   req.Name,
	})
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	redisState := "disabled"
	status := "healthy"
	httpStatus := http.StatusOK

	if h.cache != nil {
		if h.cache.Ping() == nil {
			redisState = "connected"
		} else {
			redisState = "unreachable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"redis":     redisState,
		"timestamp": time.Now(),
	})
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	defer observe(r.Method, "/stats", time.Now())

	stats := map[string]interface{}{
		"active_sessions": h.sessions.Count(),
		"profiles":        len(h.profiles.List()),
		"timestamp":       time.Now(),
	}
	if h.cache != nil {
		stats["redis"] = h.cache.GetStats()
	}

	metrics.RequestsTotal.WithLabelValues(r.Method, "/stats", "200").Inc()
	writeJSON(w, http.StatusOK, stats)
}

// sessionProfile извлекает сессию из пути запроса вместе с ее активным профилем
func (h *Handler) sessionProfile(r *http.Request) (session.Session, profile.MissionProfile, error) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		return session.Session{}, profile.MissionProfile{}, err
	}
	prof, err := h.profiles.Get(sess.ActiveProfile)
	if err != nil {
		return session.Session{}, profile.MissionProfile{}, err
	}
	return sess, prof, nil
}

// writeError сопоставляет ошибку доменного слоя HTTP статусу
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status := errorStatus(err)
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errorStatus классифицирует ошибки: ParseError и ValidationError являются
// ошибками клиента, NotFoundError дает 404, остальное считается внутренней
func errorStatus(err error) int {
	var parseErr *telemetry.ParseError
	var validationErr *profile.ValidationError
	var notFoundErr *profile.NotFoundError

	switch {
	case errors.As(err, &parseErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON отправляет JSON ответ
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// observe записывает длительность запроса
func observe(method, endpoint string, start time.Time) {
	metrics.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
}
