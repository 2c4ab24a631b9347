package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacecraft-telemetry-analyzer/internal/handlers"
	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/session"
	"spacecraft-telemetry-analyzer/internal/summary"
	"spacecraft-telemetry-analyzer/internal/telemetry"
)

const scenarioCSV = `timestamp,temperature,pressure,velocity,battery,fuel
01-05-2025 10:00,24,0.97,7071,60,97
01-05-2025 10:30,-3,0.67,7172,57,96
`

// newServer поднимает сервис без Redis
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	profiles, err := profile.NewStore(nil)
	require.NoError(t, err)

	h := handlers.NewHandler(session.NewRegistry(), profiles, nil, summary.DefaultHealthConfig())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	payload := map[string]json.RawMessage{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	}
	return resp, payload
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/session", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var id string
	require.NoError(t, json.Unmarshal(payload["id"], &id))
	require.NotEmpty(t, id)
	return id
}

func uploadCSV(t *testing.T, srv *httptest.Server, id, csvData string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "telemetry.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/session/"+id+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func saveProfile(t *testing.T, srv *httptest.Server, name string, tempLow, tempHigh float64) {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/profiles", map[string]interface{}{
		"name": name,
		"bounds": map[string]map[string]*float64{
			"temperature": {"low": &tempLow, "high": &tempHigh},
			"pressure":    {"low": nil, "high": nil},
			"velocity":    {"low": nil, "high": nil},
			"battery":     {"low": nil, "high": nil},
			"fuel":        {"low": nil, "high": nil},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func switchProfile(t *testing.T, srv *httptest.Server, id, name string) {
	t.Helper()

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/session/"+id+"/profile", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func getSummary(t *testing.T, srv *httptest.Server, id string) summary.Summary {
	t.Helper()

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/session/"+id+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s summary.Summary
	require.NoError(t, json.Unmarshal(payload["summary"], &s))
	return s
}

// Сценарий из двух записей: при широком температурном диапазоне обе чистые,
// после переключения на узкий — вторая запись аномальна и дает 50%
func TestScenario_ProfileSwitchRecomputesAnomalies(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	resp := uploadCSV(t, srv, id, scenarioCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saveProfile(t, srv, "Cruise Wide", -40, 50)
	switchProfile(t, srv, id, "Cruise Wide")

	s := getSummary(t, srv, id)
	assert.Equal(t, 2, s.TotalRecords)
	assert.Equal(t, 0, s.Parameters[telemetry.ParamTemperature].OutOfRange)
	assert.Equal(t, 0.0, s.Parameters[telemetry.ParamTemperature].Percent)

	saveProfile(t, srv, "Cruise Tight", 0, 50)
	switchProfile(t, srv, id, "Cruise Tight")

	s = getSummary(t, srv, id)
	assert.Equal(t, 1, s.Parameters[telemetry.ParamTemperature].OutOfRange)
	assert.Equal(t, 50.0, s.Parameters[telemetry.ParamTemperature].Percent)
	assert.Equal(t, summary.HealthCritical, s.Health)
}

func TestUpload_BadCSVRejectsWholeImport(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	bad := scenarioCSV + "01-05-2025 11:00,not-a-number,0.9,7100,55,95\n"
	resp := uploadCSV(t, srv, id, bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "row 3")

	// Набор данных сессии не изменился
	s := getSummary(t, srv, id)
	assert.Equal(t, 0, s.TotalRecords)
	assert.Equal(t, summary.HealthNominal, s.Health)
}

func TestProfiles_ListAndValidation(t *testing.T) {
	srv := newServer(t)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/profiles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	require.NoError(t, json.Unmarshal(payload["profiles"], &names))
	require.GreaterOrEqual(t, len(names), 6)
	assert.Equal(t, "Standard", names[0])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/profiles/Nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// lower > upper отклоняется
	low, high := 50.0, -50.0
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/profiles", map[string]interface{}{
		"name": "Broken",
		"bounds": map[string]map[string]*float64{
			"temperature": {"low": &low, "high": &high},
			"pressure":    {},
			"velocity":    {},
			"battery":     {},
			"fuel":        {},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Перезапись встроенного имени отклоняется
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/profiles", map[string]interface{}{
		"name": "Standard",
		"bounds": map[string]map[string]*float64{
			"temperature": {},
			"pressure":    {},
			"velocity":    {},
			"battery":     {},
			"fuel":        {},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSimulate_ReproducibleForSameSeed(t *testing.T) {
	srv := newServer(t)

	simulate := func() json.RawMessage {
		id := createSession(t, srv)
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/session/"+id+"/simulate", map[string]interface{}{
			"count":            20,
			"start":            "25-04-2025 09:00",
			"interval_minutes": 5,
			"seed":             42,
			"anomaly_rate":     0.3,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		recResp, payload := doJSON(t, http.MethodGet, srv.URL+"/session/"+id+"/records", nil)
		require.Equal(t, http.StatusOK, recResp.StatusCode)
		return payload["records"]
	}

	first := simulate()
	second := simulate()
	assert.JSONEq(t, string(first), string(second))
}

func TestSimulate_Validation(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/session/"+id+"/simulate", map[string]interface{}{"count": -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/session/"+id+"/simulate", map[string]interface{}{"anomaly_rate": 1.5, "count": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/session/"+id+"/simulate", map[string]interface{}{
		"count": 10, "reference_profile": "Nonexistent",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/session/unknown/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/session/unknown/profile", map[string]string{"name": "Standard"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport_ExcelAndChart(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	resp := uploadCSV(t, srv, id, scenarioCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	xlsxResp, err := http.Get(srv.URL + "/session/" + id + "/export/excel")
	require.NoError(t, err)
	defer xlsxResp.Body.Close()
	require.Equal(t, http.StatusOK, xlsxResp.StatusCode)
	assert.Contains(t, xlsxResp.Header.Get("Content-Type"), "spreadsheetml")
	data, err := io.ReadAll(xlsxResp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	pngResp, err := http.Get(srv.URL + "/session/" + id + "/export/chart?parameter=temperature")
	require.NoError(t, err)
	defer pngResp.Body.Close()
	require.Equal(t, http.StatusOK, pngResp.StatusCode)
	assert.Equal(t, "image/png", pngResp.Header.Get("Content-Type"))
	png, err := io.ReadAll(pngResp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	badResp, err := http.Get(srv.URL + "/session/" + id + "/export/chart?parameter=altitude")
	require.NoError(t, err)
	defer badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestAnalysis_AlertsPresent(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)

	// Вторая запись нарушает нижнюю границу температуры профиля Standard
	resp := uploadCSV(t, srv, id, scenarioCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	analysisResp, payload := doJSON(t, http.MethodGet, srv.URL+"/session/"+id+"/analysis", nil)
	require.Equal(t, http.StatusOK, analysisResp.StatusCode)

	var alerts []string
	require.NoError(t, json.Unmarshal(payload["alerts"], &alerts))
	require.NotEmpty(t, alerts)
	assert.Contains(t, alerts, fmt.Sprintf("Low temperature detected: %g°C", -3.0))
}
