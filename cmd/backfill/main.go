// Command backfill recomputes daily statistics for a range of dates.
//
// Usage:
//
//	go run ./cmd/backfill -from 2024-01-01 -to 2024-01-31
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/airquality-server/internal/aggregation"
	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/observability"
	"github.com/smukkama/airquality-server/pkg/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	fromFlag := flag.String("from", "", "first date to aggregate (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "last date to aggregate, inclusive (YYYY-MM-DD)")
	flag.Parse()

	if *fromFlag == "" || *toFlag == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -from, -to")
	}
	from, err := time.Parse(time.DateOnly, *fromFlag)
	if err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	to, err := time.Parse(time.DateOnly, *toFlag)
	if err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("-to %s is before -from %s", *toFlag, *fromFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	agg := aggregation.NewDailyAggregator(db, observability.NewMetrics(), logger, clockwork.NewRealClock())
	summary := agg.Backfill(ctx, from, to)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if summary.DaysProcessed < summary.TotalDays {
		return fmt.Errorf("%d of %d days failed", summary.TotalDays-summary.DaysProcessed, summary.TotalDays)
	}
	return nil
}
