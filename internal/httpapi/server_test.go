package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/airquality-server/internal/httpapi"
	"github.com/smukkama/airquality-server/internal/scheduler"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) PingContext(context.Context) error { return m.err }

type mockJobs struct {
	result any
	err    error
	ran    []string
	ctxErr error
}

func (m *mockJobs) RunNow(ctx context.Context, name string) (any, error) {
	m.ran = append(m.ran, name)
	m.ctxErr = ctx.Err()
	return m.result, m.err
}

func (m *mockJobs) Status() []scheduler.JobStatus {
	next := time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC)
	return []scheduler.JobStatus{{JobID: "aggregation", NextRunTime: &next, TriggerDescription: "cron[0 2 * * *]"}}
}

func newTestServer(readyErr error, jobs *mockJobs) *httpapi.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.NewServer(":0", &mockReadiness{err: readyErr}, jobs, time.Minute, logger)
}

func serve(srv *httpapi.Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, &mockJobs{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	rec := serve(newTestServer(nil, &mockJobs{}), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(newTestServer(fmt.Errorf("connection refused"), &mockJobs{}), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "connection refused", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, &mockJobs{}), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestJobsStatus(t *testing.T) {
	rec := serve(newTestServer(nil, &mockJobs{}), http.MethodGet, "/jobs")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "aggregation", body[0]["jobId"])
	assert.Equal(t, "2024-01-16T02:00:00Z", body[0]["nextRunTime"])
	assert.Equal(t, "cron[0 2 * * *]", body[0]["triggerDescription"])
}

func TestRunJob(t *testing.T) {
	jobs := &mockJobs{result: map[string]int{"created": 4}}
	rec := serve(newTestServer(nil, jobs), http.MethodPost, "/jobs/aggregation/run")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"aggregation"}, jobs.ran)
	assert.JSONEq(t, `{"job":"aggregation","result":{"created":4}}`, rec.Body.String())
}

func TestRunJob_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown", fmt.Errorf("%w: reports", scheduler.ErrUnknownJob), http.StatusNotFound},
		{"running", fmt.Errorf("%w: ingestion", scheduler.ErrJobRunning), http.StatusConflict},
		{"failed", fmt.Errorf("database unavailable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(nil, &mockJobs{err: tt.err}), http.MethodPost, "/jobs/x/run")
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestRunJob_RequiresPost(t *testing.T) {
	rec := serve(newTestServer(nil, &mockJobs{}), http.MethodGet, "/jobs/ingestion/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunJobSurvivesClientDisconnect(t *testing.T) {
	jobs := &mockJobs{result: map[string]int{"saved": 1}}
	srv := newTestServer(nil, jobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/jobs/ingestion/run", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, []string{"ingestion"}, jobs.ran)
	assert.NoError(t, jobs.ctxErr)
}
