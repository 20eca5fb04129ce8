// Package scheduler triggers the pipeline's batch jobs on cron schedules.
// Every job is non-reentrant: a trigger that arrives while the same job is
// still running is skipped, while different jobs may run concurrently.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/smukkama/airquality-server/internal/observability"
)

var (
	ErrJobRunning   = errors.New("job is already running")
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
)

// JobFunc runs one invocation of a job and returns its summary
type JobFunc func(ctx context.Context) (any, error)

// Job is a named unit of work fired on a schedule. Spec accepts standard
// five-field cron expressions and descriptors such as "@every 1m" or
// "@daily"; schedules are evaluated in UTC.
type Job struct {
	Name string
	Spec string
	Run  JobFunc
}

// JobStatus describes a registered job
type JobStatus struct {
	JobID              string        `json:"jobId"`
	NextRunTime        *time.Time    `json:"nextRunTime,omitempty"`
	TriggerDescription string        `json:"triggerDescription"`
	Running            bool          `json:"running"`
	LastRun            *time.Time    `json:"lastRun,omitempty"`
	LastDuration       time.Duration `json:"lastDuration,omitempty"`
	LastError          string        `json:"lastError,omitempty"`
}

type job struct {
	Job
	schedule cron.Schedule

	running      bool
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
}

// Scheduler fires registered jobs when their schedules come due
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	queue   *fireQueue
	wakeup  chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock
}

// New creates a scheduler. Each invocation is bounded by timeout when it is
// positive.
func New(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]*job),
		queue:   newFireQueue(),
		wakeup:  make(chan struct{}, 1),
		timeout: timeout,
		metrics: metrics,
		logger:  logger.With("component", "scheduler"),
		clock:   clock,
	}
}

// Register adds a job and schedules its first run
func (s *Scheduler) Register(j Job) error {
	if j.Name == "" || j.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	schedule, err := cron.ParseStandard(j.Spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", j.Spec, j.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, j.Name)
	}
	s.jobs[j.Name] = &job{Job: j, schedule: schedule}
	s.queue.schedule(j.Name, schedule.Next(s.clock.Now().UTC()))

	select {
	case s.wakeup <- struct{}{}:
	default:
	}
	return nil
}

// Run fires due jobs until ctx is cancelled, then waits for running jobs to
// return. Running jobs see ctx's cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "jobs", len(s.Status()))
	defer s.wg.Wait()

	for {
		s.mu.Lock()
		wait := 24 * time.Hour
		if e, ok := s.queue.peek(); ok {
			wait = e.at.Sub(s.clock.Now())
			if wait <= 0 {
				s.queue.pop()
				j := s.jobs[e.job]
				s.queue.schedule(e.job, j.schedule.Next(s.clock.Now().UTC()))
				s.mu.Unlock()

				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.fire(ctx, j.Name)
				}()
				continue
			}
		}
		s.mu.Unlock()

		timer := s.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-s.wakeup:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping")
			return nil
		}
	}
}

// fire runs a scheduled trigger, skipping it when the job is still running
func (s *Scheduler) fire(ctx context.Context, name string) {
	_, err := s.execute(ctx, name, "schedule")
	if errors.Is(err, ErrJobRunning) {
		s.metrics.JobRuns.WithLabelValues(name, "skipped").Inc()
		s.logger.Warn("previous run still in progress, trigger skipped", "job", name)
	}
}

// RunNow runs the job immediately and returns its summary. It fails with
// ErrJobRunning instead of starting a second concurrent run.
func (s *Scheduler) RunNow(ctx context.Context, name string) (any, error) {
	return s.execute(ctx, name, "manual")
}

func (s *Scheduler) execute(ctx context.Context, name, trigger string) (any, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if j.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	j.running = true
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With("job", name, "trigger", trigger)
	logger.Info("job started")
	s.metrics.JobRunning.WithLabelValues(name).Set(1)
	start := s.clock.Now()

	result, err := j.Run(ctx)

	duration := s.clock.Since(start)
	s.metrics.JobRunning.WithLabelValues(name).Set(0)
	s.metrics.JobDuration.WithLabelValues(name).Observe(duration.Seconds())

	s.mu.Lock()
	j.running = false
	j.lastRun = start
	j.lastDuration = duration
	j.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.metrics.JobRuns.WithLabelValues(name, "error").Inc()
		logger.Error("job failed", "duration", duration, "error", err)
		return result, err
	}
	s.metrics.JobRuns.WithLabelValues(name, "success").Inc()
	logger.Info("job completed", "duration", duration)
	return result, nil
}

// Status lists registered jobs ordered by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		st := JobStatus{
			JobID:              name,
			TriggerDescription: describe(j.Spec),
			Running:            j.running,
			LastDuration:       j.lastDuration,
		}
		if next, ok := s.queue.next(name); ok {
			st.NextRunTime = &next
		}
		if !j.lastRun.IsZero() {
			last := j.lastRun
			st.LastRun = &last
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out
}

func describe(spec string) string {
	if d, ok := strings.CutPrefix(spec, "@every "); ok {
		return "interval[" + d + "]"
	}
	return "cron[" + spec + "]"
}
