package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/notification"
	"github.com/smukkama/airquality-server/internal/observability"
)

// Store is the part of the database the evaluator reads and writes
type Store interface {
	ActiveAlertRules(ctx context.Context) ([]*database.AlertRule, error)
	LatestReading(ctx context.Context, stationID, pollutantID int64, since time.Time) (*database.Reading, error)
	MarkAlertTriggered(ctx context.Context, alertID int64, at time.Time) error
}

// Dispatcher delivers a triggered alert over its notification method
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, alert notification.AlertDetails, reading notification.ReadingDetails) notification.Result
}

// Options tunes the evaluator
type Options struct {
	// RecencyWindow bounds how old the newest reading may be
	RecencyWindow time.Duration
	// Cooldown is the minimum time between two notifications of one alert
	Cooldown time.Duration
}

// DefaultOptions returns a 5 minute recency window and a 30 minute cooldown
func DefaultOptions() Options {
	return Options{RecencyWindow: 5 * time.Minute, Cooldown: 30 * time.Minute}
}

// Summary counts the outcome of every active alert in one run
type Summary struct {
	Checked    int           `json:"checked"`
	Stale      int           `json:"stale"`
	NotMet     int           `json:"not_met"`
	Invalid    int           `json:"invalid"`
	Suppressed int           `json:"suppressed"`
	Notified   int           `json:"notified"`
	Failed     int           `json:"failed"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

type outcome string

const (
	outcomeStale      outcome = "stale"
	outcomeNotMet     outcome = "not_met"
	outcomeInvalid    outcome = "invalid"
	outcomeSuppressed outcome = "suppressed"
	outcomeNotified   outcome = "notified"
	outcomeFailed     outcome = "failed"
	outcomeError      outcome = "error"
)

func (s *Summary) add(o outcome) {
	switch o {
	case outcomeStale:
		s.Stale++
	case outcomeNotMet:
		s.NotMet++
	case outcomeInvalid:
		s.Invalid++
	case outcomeSuppressed:
		s.Suppressed++
	case outcomeNotified:
		s.Notified++
	case outcomeFailed:
		s.Failed++
	case outcomeError:
		s.Errors++
	}
}

// Evaluator checks active alerts against the freshest readings
type Evaluator struct {
	store      Store
	dispatcher Dispatcher
	cooldown   CooldownStore
	opts       Options
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewEvaluator creates a new alert evaluator
func NewEvaluator(store Store, dispatcher Dispatcher, cooldown CooldownStore, opts Options, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *Evaluator {
	return &Evaluator{
		store:      store,
		dispatcher: dispatcher,
		cooldown:   cooldown,
		opts:       opts,
		metrics:    metrics,
		logger:     logger.With("component", "alerting"),
		clock:      clock,
	}
}

// Run evaluates every active alert once. Failures of a single alert are
// counted in the summary; an error is returned only when the alerts cannot
// be loaded or the database session is lost.
func (e *Evaluator) Run(ctx context.Context) (*Summary, error) {
	start := e.clock.Now()

	rules, err := e.store.ActiveAlertRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active alerts: %w", err)
	}

	summary := &Summary{}
	for _, rule := range rules {
		summary.Checked++
		o, err := e.evaluate(ctx, rule)
		summary.add(o)
		e.metrics.AlertEvaluations.WithLabelValues(string(o)).Inc()
		if err != nil && (ctx.Err() != nil || database.IsConnectionError(err)) {
			summary.Duration = e.clock.Since(start)
			return summary, fmt.Errorf("alert evaluation aborted: %w", err)
		}
	}

	summary.Duration = e.clock.Since(start)
	e.logger.Info("alert evaluation completed",
		"checked", summary.Checked,
		"notified", summary.Notified,
		"suppressed", summary.Suppressed,
		"stale", summary.Stale,
		"failed", summary.Failed,
		"errors", summary.Errors,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (e *Evaluator) evaluate(ctx context.Context, rule *database.AlertRule) (outcome, error) {
	logger := e.logger.With("alert_id", rule.ID, "station", rule.StationName, "pollutant", rule.PollutantName)
	now := e.clock.Now()

	reading, err := e.store.LatestReading(ctx, rule.StationID, rule.PollutantID, now.Add(-e.opts.RecencyWindow))
	if err != nil {
		logger.Error("failed to load latest reading", "error", err)
		return outcomeError, err
	}
	if reading == nil {
		return outcomeStale, nil
	}

	met, err := ConditionMet(rule.TriggerCondition, reading.Value, rule.Threshold)
	if errors.Is(err, ErrInvalidCondition) {
		logger.Warn("invalid trigger condition", "condition", rule.TriggerCondition)
		return outcomeInvalid, nil
	}
	if !met {
		return outcomeNotMet, nil
	}

	last, ok, err := e.cooldown.Get(ctx, rule.ID)
	if err != nil {
		// Without cooldown state the alert could notify every tick.
		logger.Error("failed to read cooldown", "error", err)
		return outcomeError, nil
	}
	if ok && now.Sub(last) < e.opts.Cooldown {
		logger.Debug("notification suppressed by cooldown", "last_sent", last)
		return outcomeSuppressed, nil
	}

	res := e.dispatcher.Dispatch(ctx, rule.NotificationMethod, alertDetails(rule), notification.ReadingDetails{
		Value:     reading.Value,
		AQI:       reading.AQI,
		Timestamp: reading.Timestamp,
	})
	if !res.OK() {
		logger.Warn("alert notification failed on every channel", "method", rule.NotificationMethod)
		return outcomeFailed, nil
	}

	if err := e.cooldown.Set(ctx, rule.ID, now); err != nil {
		logger.Error("failed to record cooldown", "error", err)
	}
	if err := e.store.MarkAlertTriggered(ctx, rule.ID, now); err != nil {
		logger.Error("failed to mark alert triggered", "error", err)
	}
	logger.Info("alert triggered",
		"value", reading.Value, "threshold", rule.Threshold,
		"condition", rule.TriggerCondition, "channels", res.Delivered)
	return outcomeNotified, nil
}

func alertDetails(rule *database.AlertRule) notification.AlertDetails {
	return notification.AlertDetails{
		AlertID:       rule.ID,
		UserID:        rule.UserID,
		UserName:      rule.UserName,
		UserEmail:     rule.UserEmail,
		StationName:   rule.StationName,
		StationCity:   rule.StationCity,
		PollutantName: rule.PollutantName,
		Threshold:     rule.Threshold,
		Condition:     rule.TriggerCondition,
	}
}
