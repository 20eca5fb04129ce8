// Package ingestion pulls provider payloads, normalizes them into canonical
// readings and stores them without duplicates.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smukkama/airquality-server/internal/database"
)

// ReadingStore persists one reading. inserted is false when a reading with
// the same station, pollutant and timestamp already exists.
type ReadingStore interface {
	InsertReading(ctx context.Context, r *database.Reading) (inserted bool, err error)
}

// WriteStats counts the outcome of one Write call
type WriteStats struct {
	Validated  int `json:"validated"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

func (s *WriteStats) add(o WriteStats) {
	s.Validated += o.Validated
	s.Saved += o.Saved
	s.Duplicates += o.Duplicates
	s.Errors += o.Errors
}

// Writer stores readings one at a time, each under its own timeout
type Writer struct {
	store   ReadingStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewWriter creates a Writer. A non-positive timeout disables the per-record
// deadline.
func NewWriter(store ReadingStore, timeout time.Duration, logger *slog.Logger) *Writer {
	return &Writer{store: store, timeout: timeout, logger: logger}
}

// Write persists readings in order. Duplicates are counted, not returned as
// errors. A failing record is counted and skipped; the batch is only
// abandoned when ctx is done or the database session is lost, in which case
// the stats so far are returned with the error.
func (w *Writer) Write(ctx context.Context, readings []database.Reading) (WriteStats, error) {
	var stats WriteStats
	for i := range readings {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		r := &readings[i]
		stats.Validated++

		inserted, err := w.insert(ctx, r)
		switch {
		case err == nil && inserted:
			stats.Saved++
		case err == nil:
			stats.Duplicates++
			w.logger.Debug("duplicate reading",
				"station_id", r.StationID, "pollutant_id", r.PollutantID, "timestamp", r.Timestamp)
		case ctx.Err() != nil || database.IsConnectionError(err):
			stats.Errors++
			return stats, fmt.Errorf("write aborted after %d of %d readings: %w", i, len(readings), err)
		default:
			stats.Errors++
			w.logger.Error("failed to store reading",
				"station_id", r.StationID, "pollutant_id", r.PollutantID, "timestamp", r.Timestamp,
				"timed_out", errors.Is(err, context.DeadlineExceeded), "error", err)
		}
	}
	return stats, nil
}

func (w *Writer) insert(ctx context.Context, r *database.Reading) (bool, error) {
	if w.timeout <= 0 {
		return w.store.InsertReading(ctx, r)
	}
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.store.InsertReading(rctx, r)
}
