package aggregation

import (
	"context"
	"time"
)

// BackfillSummary is the outcome of aggregating a range of dates
type BackfillSummary struct {
	From          string        `json:"from"`
	To            string        `json:"to"`
	TotalDays     int           `json:"total_days"`
	DaysProcessed int           `json:"days_processed"`
	Created       int           `json:"created"`
	Updated       int           `json:"updated"`
	Errors        int           `json:"errors"`
	FailedDays    []string      `json:"failed_days,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Backfill aggregates every date from from to to, both inclusive. A failing
// day is tallied and the range continues; only cancellation of ctx stops it
// early.
func (d *DailyAggregator) Backfill(ctx context.Context, from, to time.Time) *BackfillSummary {
	start := d.clock.Now()
	first, last := StartOfDay(from), StartOfDay(to)
	summary := &BackfillSummary{
		From: first.Format(dateLayout),
		To:   last.Format(dateLayout),
	}
	if last.Before(first) {
		return summary
	}
	summary.TotalDays = int(last.Sub(first)/(24*time.Hour)) + 1

	d.logger.Info("backfill started", "from", summary.From, "to", summary.To, "days", summary.TotalDays)

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			d.logger.Warn("backfill cancelled", "at", day.Format(dateLayout))
			break
		}

		res, err := d.Aggregate(ctx, day)
		if res != nil {
			summary.Created += res.Created
			summary.Updated += res.Updated
			summary.Errors += res.Errors
		}
		if err != nil {
			if res == nil {
				summary.Errors++
			}
			summary.FailedDays = append(summary.FailedDays, day.Format(dateLayout))
			d.logger.Error("backfill day failed", "date", day.Format(dateLayout), "error", err)
			continue
		}
		summary.DaysProcessed++
	}

	summary.Duration = d.clock.Since(start)
	d.logger.Info("backfill completed",
		"days_processed", summary.DaysProcessed,
		"total_days", summary.TotalDays,
		"created", summary.Created,
		"updated", summary.Updated,
		"errors", summary.Errors,
	)
	return summary
}
