package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlphaKit/internal/domain/models"
	"AlphaKit/internal/registry"
	"AlphaKit/internal/repository"
	"AlphaKit/internal/service/lock"
	"AlphaKit/internal/service/quandl"
	"AlphaKit/internal/service/secrets"
	"AlphaKit/internal/usecase"
	"AlphaKit/pkg/cache"
	xhttp "AlphaKit/pkg/http"
	xlogger "AlphaKit/pkg/logger"
	"AlphaKit/pkg/metrics"
)

var payloads = map[string]string{
	"/api/v3/datasets/DB/A/data.csv": "Date,v\n2020-01-03,12\n2020-01-02,11\n2020-01-01,10\n",
	"/api/v3/datasets/DB/B/data.csv": "Date,v\n2020-01-03,9\n2020-01-02,9.5\n2020-01-01,10\n",
	"/api/v3/datasets/DB/D/data.csv": "Date,v\n2020-01-02,1\n2020-01-02,2\n",
}

func testRegistry() *registry.Registry {
	spec := func(id string) models.DatasetSpec {
		return models.DatasetSpec{
			ShortID: id, Provider: models.ProviderQuandl, DatabaseCode: "DB", DatasetCode: id,
			IndexColumn: "Date", Frequency: models.Daily, TestVars: []string{"v"}, RequiredFields: []string{"v"}, ValueField: "v",
		}
	}
	return registry.New(spec("A"), spec("B"), spec("D"))
}

func newHandlerServer(t *testing.T) *xhttp.Server {
	t.Helper()
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(provider.Close)

	log := xlogger.Nop()
	store, err := repository.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)
	transport := quandl.New(log, quandl.WithBaseURL(models.ProviderQuandl, provider.URL), quandl.WithRetry(1, 0))
	runner := usecase.NewScenarioRunner(testRegistry(), transport, store, lock.NewLocal(), secrets.Static("k"),
		repository.NopReportSink{}, metrics.Nop{}, log,
		usecase.RunnerConfig{Workers: 2, MissingTolerance: 1, RunTimeout: 5 * time.Second, Credential: "KEY"})

	reports := cache.NewMemoryCache()
	t.Cleanup(func() { _ = reports.Close() })
	return xhttp.NewServer(NewScenarioEchoHandler(log, runner, reports, time.Minute), log)
}

func call(s *xhttp.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) int {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env.Status
}

func TestDatasets(t *testing.T) {
	s := newHandlerServer(t)
	rec := call(s, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Rows  []DatasetView `json:"rows"`
		Total int           `json:"total"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "A", list.Rows[0].ID)
	assert.Equal(t, "DB/A", list.Rows[0].Code)
}

func TestCacheKeyRoundTrip(t *testing.T) {
	s := newHandlerServer(t)

	rec := call(s, http.MethodGet, "/api/datasets/A/cachekey?start=2020-01-01&end=2020-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v CacheKeyView
	decode(t, rec, &v)
	assert.Equal(t, "Quandl-DB-A-20200101-20201231.csv", v.Key)

	rec = call(s, http.MethodGet, "/api/cachekeys/"+v.Key, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var back CacheKeyView
	decode(t, rec, &back)
	assert.Equal(t, v, back)
}

func TestCacheKeyErrors(t *testing.T) {
	s := newHandlerServer(t)

	assert.Equal(t, http.StatusBadRequest, call(s, http.MethodGet, "/api/cachekeys/not-a-key.csv", "").Code)
	assert.Equal(t, http.StatusNotFound, call(s, http.MethodGet, "/api/datasets/zzz/cachekey", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(s, http.MethodGet, "/api/datasets/A/cachekey?start=2021-01-01&end=2020-01-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(s, http.MethodGet, "/api/datasets/A/cachekey?start=yesterday", "").Code)
}

func TestRunScenarioAndFetchReport(t *testing.T) {
	s := newHandlerServer(t)

	rec := call(s, http.MethodPost, "/api/scenarios", `{"datasets":["A","B"],"start":"2020-01-01","end":"2020-01-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report struct {
		RunID   string `json:"run_id"`
		Members []struct {
			Series string `json:"series"`
			Status string `json:"status"`
		} `json:"members"`
		Correlation struct {
			Columns []string `json:"columns"`
		} `json:"correlation"`
	}
	decode(t, rec, &report)
	require.NotEmpty(t, report.RunID)
	assert.Equal(t, "/api/reports/"+report.RunID, rec.Header().Get(echo.HeaderLocation))
	require.Len(t, report.Members, 2)
	assert.Equal(t, "cleaned", report.Members[0].Status)
	assert.Equal(t, []string{"A:v", "B:v"}, report.Correlation.Columns)

	rec = call(s, http.MethodGet, "/api/reports/"+report.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cached struct {
		RunID string `json:"run_id"`
	}
	decode(t, rec, &cached)
	assert.Equal(t, report.RunID, cached.RunID)

	assert.Equal(t, http.StatusNotFound, call(s, http.MethodGet, "/api/reports/unknown", "").Code)
}

func TestRunScenarioCallerErrors(t *testing.T) {
	s := newHandlerServer(t)

	cases := map[string]string{
		"empty list":     `{"datasets":[]}`,
		"unknown":        `{"datasets":["zzz"]}`,
		"bad date":       `{"datasets":["A"],"start":"2020/01/01"}`,
		"reversed":       `{"datasets":["A"],"start":"2021-01-01","end":"2020-01-01"}`,
		"malformed json": `{"datasets":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := call(s, http.MethodPost, "/api/scenarios", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRunScenarioPartialFailureStillReports(t *testing.T) {
	s := newHandlerServer(t)
	rec := call(s, http.MethodPost, "/api/scenarios", `{"datasets":["A","D"],"start":"2020-01-01","end":"2020-01-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report struct {
		Members []struct {
			Series string `json:"series"`
			Status string `json:"status"`
		} `json:"members"`
		Problems []models.Problem `json:"problems"`
	}
	decode(t, rec, &report)
	require.Len(t, report.Members, 2)
	assert.Equal(t, "error", report.Members[1].Status)

	var kinds []models.ProblemKind
	for _, p := range report.Problems {
		kinds = append(kinds, p.Kind)
	}
	assert.Contains(t, kinds, models.ProblemDuplicateDate)
	assert.Contains(t, kinds, models.ProblemInsufficientSeries)
}
