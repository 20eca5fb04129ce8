package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/airquality-server/internal/observability"
)

func newTestScheduler(clock clockwork.Clock) (*Scheduler, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(time.Minute, metrics, logger, clock), metrics
}

func noop(context.Context) (any, error) { return nil, nil }

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(clockwork.NewFakeClock())

	require.NoError(t, s.Register(Job{Name: "alerts", Spec: "@every 1m", Run: noop}))
	require.NoError(t, s.Register(Job{Name: "aggregation", Spec: "0 2 * * *", Run: noop}))

	err := s.Register(Job{Name: "alerts", Spec: "@every 5m", Run: noop})
	assert.ErrorIs(t, err, ErrDuplicateJob)

	err = s.Register(Job{Name: "bad", Spec: "every minute", Run: noop})
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestStatus(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC))
	s, _ := newTestScheduler(clock)
	require.NoError(t, s.Register(Job{Name: "ingestion", Spec: "@every 30m", Run: noop}))
	require.NoError(t, s.Register(Job{Name: "aggregation", Spec: "0 2 * * *", Run: noop}))

	status := s.Status()
	require.Len(t, status, 2)

	assert.Equal(t, "aggregation", status[0].JobID)
	assert.Equal(t, "cron[0 2 * * *]", status[0].TriggerDescription)
	require.NotNil(t, status[0].NextRunTime)
	assert.Equal(t, time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC), *status[0].NextRunTime)

	assert.Equal(t, "ingestion", status[1].JobID)
	assert.Equal(t, "interval[30m]", status[1].TriggerDescription)
	assert.Equal(t, clock.Now().Add(30*time.Minute), *status[1].NextRunTime)
	assert.Nil(t, status[1].LastRun)
}

func TestRunNow(t *testing.T) {
	s, metrics := newTestScheduler(clockwork.NewFakeClock())
	require.NoError(t, s.Register(Job{Name: "aggregation", Spec: "@daily", Run: func(context.Context) (any, error) {
		return map[string]int{"created": 3}, nil
	}}))

	result, err := s.RunNow(context.Background(), "aggregation")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"created": 3}, result)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("aggregation", "success")))
	assert.NotNil(t, s.Status()[0].LastRun)

	_, err = s.RunNow(context.Background(), "reports")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunNow_RecordsFailure(t *testing.T) {
	s, metrics := newTestScheduler(clockwork.NewFakeClock())
	require.NoError(t, s.Register(Job{Name: "ingestion", Spec: "@every 30m", Run: func(context.Context) (any, error) {
		return nil, errors.New("database unavailable")
	}}))

	_, err := s.RunNow(context.Background(), "ingestion")
	assert.ErrorContains(t, err, "database unavailable")
	assert.Equal(t, "database unavailable", s.Status()[0].LastError)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("ingestion", "error")))
}

func TestJobsAreNonReentrant(t *testing.T) {
	s, metrics := newTestScheduler(clockwork.NewFakeClock())

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(Job{Name: "ingestion", Spec: "@every 1m", Run: func(context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	}}))
	require.NoError(t, s.Register(Job{Name: "alerts", Spec: "@every 1m", Run: noop}))

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "ingestion")
		done <- err
	}()
	<-started

	_, err := s.RunNow(context.Background(), "ingestion")
	assert.ErrorIs(t, err, ErrJobRunning)

	s.fire(context.Background(), "ingestion")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("ingestion", "skipped")))

	// other jobs are unaffected
	_, err = s.RunNow(context.Background(), "alerts")
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Status()[1].Running)
}

func TestRun_FiresDueJobs(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC))
	s, _ := newTestScheduler(clock)

	fired := make(chan time.Time, 4)
	require.NoError(t, s.Register(Job{Name: "alerts", Spec: "@every 1m", Run: func(context.Context) (any, error) {
		fired <- clock.Now()
		return nil, nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Minute)

	select {
	case at := <-fired:
		assert.Equal(t, time.Date(2024, 1, 15, 14, 31, 0, 0, time.UTC), at)
	case <-waitCtx.Done():
		t.Fatal("job did not fire")
	}

	cancel()
	require.NoError(t, <-stopped)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 32, 0, 0, time.UTC), *s.Status()[0].NextRunTime)
}
