package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fincalc/internal/domain"
	"github.com/aristath/fincalc/internal/modules/calculator"
	calchandlers "github.com/aristath/fincalc/internal/modules/calculator/handlers"
	"github.com/aristath/fincalc/internal/scheduler"
	testutil "github.com/aristath/fincalc/internal/testing"
)

type stubStore struct{}

func (stubStore) PricesBetween(string, time.Time, time.Time) ([]domain.PricePoint, error) {
	return nil, nil
}

func (stubStore) UpsertPrices([]domain.PricePoint) (int, error) { return 0, nil }

type stubStatuses struct{}

func (stubStatuses) InstrumentStatuses(catalogue []domain.Instrument) ([]domain.InstrumentStatus, error) {
	statuses := make([]domain.InstrumentStatus, len(catalogue))
	for i, inst := range catalogue {
		statuses[i] = domain.InstrumentStatus{Ticker: inst.Ticker, Name: inst.Name}
	}
	return statuses, nil
}

type countingJob struct {
	name string
	runs atomic.Int64
	done chan struct{}
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.done != nil {
		close(j.done)
	}
	return nil
}

func (j *countingJob) Name() string { return j.name }

func newTestServer(t *testing.T, syncJob *countingJob) *Server {
	t.Helper()

	historyDB, cleanupHistory := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanupHistory)
	cacheDB, cleanupCache := testutil.NewTestDB(t, "cache")
	t.Cleanup(cleanupCache)

	catalogue := []domain.Instrument{{Ticker: "SBER", Name: "Sberbank"}}
	calcService := calculator.NewService(stubStore{}, nil, nil, nil, catalogue, zerolog.Nop())
	investment := calchandlers.NewHandler(calcService, stubStore{}, stubStatuses{}, catalogue, zerolog.Nop())

	var job scheduler.Job
	if syncJob != nil {
		job = syncJob
	}

	return New(Config{
		Log:                zerolog.Nop(),
		Port:               0,
		DevMode:            true,
		DataDir:            t.TempDir(),
		HistoryDB:          historyDB,
		CacheDB:            cacheDB,
		InvestmentHandlers: investment,
		PriceSyncJob:       job,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "fincalc", body["service"])
}

func TestSystemStatus(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body systemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Version)
}

func TestDatabaseStats(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Databases []databaseStats `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Databases, 2)
	for _, db := range body.Databases {
		assert.Positive(t, db.SizeMB)
	}
}

func TestTriggerPriceSync(t *testing.T) {
	job := &countingJob{name: "price_sync", done: make(chan struct{})}
	srv := newTestServer(t, job)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/price-sync", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestTriggerUnconfiguredJob(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/backup", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInvestmentRoutesMounted(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/investment/instruments", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SBER")
}
