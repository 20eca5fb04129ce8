// Package aggregation rolls raw readings up into per-day statistics.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/observability"
)

const dateLayout = "2006-01-02"

// Store is the part of the database the aggregator reads and writes
type Store interface {
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]database.ReadingSample, error)
	UpsertDailyStat(ctx context.Context, s *database.DailyStat) (created bool, err error)
	ListStations(ctx context.Context) ([]*database.Station, error)
	ListPollutants(ctx context.Context) ([]*database.Pollutant, error)
}

// DaySummary is the outcome of aggregating one date
type DaySummary struct {
	TargetDate string        `json:"target_date"`
	Pairs      int           `json:"pairs"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Errors     int           `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// DailyAggregator performs daily aggregation
type DailyAggregator struct {
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock
}

// NewDailyAggregator creates a new daily aggregator
func NewDailyAggregator(store Store, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *DailyAggregator {
	return &DailyAggregator{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "aggregation"),
		clock:   clock,
	}
}

// StartOfDay returns midnight UTC of t's UTC calendar date
func StartOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Aggregate computes the statistics of every (station, pollutant) pair that
// has readings on the UTC calendar date of targetDate and upserts them.
// Pairs without readings are skipped and keep any existing row. A failing
// pair is counted and the rest still run; an error is only returned when the
// readings cannot be loaded or the database session is lost.
func (d *DailyAggregator) Aggregate(ctx context.Context, targetDate time.Time) (*DaySummary, error) {
	start := d.clock.Now()
	day := StartOfDay(targetDate)
	summary := &DaySummary{TargetDate: day.Format(dateLayout)}
	logger := d.logger.With("date", summary.TargetDate)

	samples, err := d.store.ReadingsBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load readings for %s: %w", summary.TargetDate, err)
	}

	stats := computeStats(samples)
	summary.Pairs = len(stats)

	if total, err := d.pairCount(ctx); err == nil {
		summary.Skipped = max(total-len(stats), 0)
	} else {
		logger.Warn("could not count catalog pairs", "error", err)
	}

	for i := range stats {
		s := &stats[i]
		s.Date = day

		created, err := d.store.UpsertDailyStat(ctx, s)
		switch {
		case err == nil && created:
			summary.Created++
			d.metrics.DailyStatsWritten.WithLabelValues("created").Inc()
		case err == nil:
			summary.Updated++
			d.metrics.DailyStatsWritten.WithLabelValues("updated").Inc()
		case ctx.Err() != nil || database.IsConnectionError(err):
			summary.Errors++
			return summary, fmt.Errorf("daily aggregation aborted: %w", err)
		default:
			summary.Errors++
			d.metrics.DailyStatsWritten.WithLabelValues("error").Inc()
			logger.Error("failed to upsert daily stat",
				"station_id", s.StationID, "pollutant_id", s.PollutantID, "error", err)
		}
	}

	summary.Duration = d.clock.Since(start)
	logger.Info("daily aggregation completed",
		"pairs", summary.Pairs,
		"created", summary.Created,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
		"duration", summary.Duration,
	)
	return summary, nil
}

// AggregatePreviousDay aggregates the previous full UTC day
func (d *DailyAggregator) AggregatePreviousDay(ctx context.Context) (*DaySummary, error) {
	yesterday := StartOfDay(d.clock.Now()).AddDate(0, 0, -1)
	return d.Aggregate(ctx, yesterday)
}

func (d *DailyAggregator) pairCount(ctx context.Context) (int, error) {
	stations, err := d.store.ListStations(ctx)
	if err != nil {
		return 0, err
	}
	pollutants, err := d.store.ListPollutants(ctx)
	if err != nil {
		return 0, err
	}
	return len(stations) * len(pollutants), nil
}

type pairKey struct {
	station, pollutant int64
}

type accumulator struct {
	count    int
	valueSum float64
	aqiSum   int
	aqiCount int
	aqiMin   int
	aqiMax   int
}

// computeStats groups samples by (station, pollutant). Output order follows
// the first appearance of each pair.
func computeStats(samples []database.ReadingSample) []database.DailyStat {
	var order []pairKey
	acc := make(map[pairKey]*accumulator)

	for _, s := range samples {
		k := pairKey{s.StationID, s.PollutantID}
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
			order = append(order, k)
		}
		a.count++
		a.valueSum += s.Value
		if s.AQI == nil {
			continue
		}
		v := *s.AQI
		if a.aqiCount == 0 || v < a.aqiMin {
			a.aqiMin = v
		}
		if a.aqiCount == 0 || v > a.aqiMax {
			a.aqiMax = v
		}
		a.aqiSum += v
		a.aqiCount++
	}

	out := make([]database.DailyStat, 0, len(order))
	for _, k := range order {
		a := acc[k]
		avg := a.valueSum / float64(a.count)
		stat := database.DailyStat{
			StationID:     k.station,
			PollutantID:   k.pollutant,
			AvgValue:      &avg,
			ReadingsCount: a.count,
		}
		if a.aqiCount > 0 {
			avgAQI := int(math.Round(float64(a.aqiSum) / float64(a.aqiCount)))
			minAQI, maxAQI := a.aqiMin, a.aqiMax
			stat.AvgAQI = &avgAQI
			stat.MinAQI = &minAQI
			stat.MaxAQI = &maxAQI
		}
		out = append(out, stat)
	}
	return out
}
