package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/observability"
	"github.com/smukkama/airquality-server/internal/protocol"
	"github.com/smukkama/airquality-server/internal/provider"
)

// Store is everything an ingestion run needs from the database
type Store interface {
	provider.CatalogSource
	ReadingStore
	EnsureProvider(ctx context.Context, p *database.Provider) error
	PingContext(ctx context.Context) error
}

// Fetcher pulls the payloads of one provider
type Fetcher interface {
	Fetch(ctx context.Context, src provider.Source) ([]provider.Payload, error)
}

const auditTimeout = 5 * time.Second

// Options tune an Orchestrator
type Options struct {
	AutoCreateStations bool
	WriteTimeout       time.Duration
}

// ProviderResult is the outcome of one provider within a run
type ProviderResult struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Payloads int    `json:"payloads"`
	Rejected int    `json:"rejected"`
	NormalizeStats
	WriteStats
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunSummary is the result of one ingestion run
type RunSummary struct {
	RunID           string            `json:"run_id"`
	StartedAt       time.Time         `json:"started_at"`
	Duration        time.Duration     `json:"duration"`
	Providers       []ProviderResult  `json:"providers"`
	TotalSaved      int               `json:"total_saved"`
	TotalDuplicates int               `json:"total_duplicates"`
	TotalErrors     int               `json:"total_errors"`
	Errors          map[string]string `json:"errors,omitempty"`
}

// Orchestrator runs one ingestion pass over every configured provider
type Orchestrator struct {
	store   Store
	fetcher Fetcher
	sources []provider.Source
	writer  *Writer
	audit   AuditLog
	opts    Options
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock
}

// NewOrchestrator wires an Orchestrator. A nil audit log writes audit
// entries to logger.
func NewOrchestrator(store Store, fetcher Fetcher, sources []provider.Source, audit AuditLog,
	opts Options, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *Orchestrator {
	logger = logger.With("component", "ingestion")
	if audit == nil {
		audit = NewLogAuditLog(logger)
	}
	return &Orchestrator{
		store:   store,
		fetcher: fetcher,
		sources: sources,
		writer:  NewWriter(store, opts.WriteTimeout, logger),
		audit:   audit,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		clock:   clock,
	}
}

// Run fetches, normalizes and stores every provider concurrently. A failing
// provider is recorded in the summary and does not affect the others. Run
// only returns an error when the database is unusable at the start.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	start := o.clock.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Errors:    map[string]string{},
	}
	logger := o.logger.With("run_id", summary.RunID)

	if err := o.store.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}

	providerIDs := make([]int64, len(o.sources))
	for i, src := range o.sources {
		p := &database.Provider{
			Name:            src.Name,
			Kind:            src.Kind.String(),
			Endpoint:        src.Endpoint,
			IntervalMinutes: int(src.Interval / time.Minute),
		}
		if err := o.store.EnsureProvider(ctx, p); err != nil {
			return nil, fmt.Errorf("register provider %q: %w", src.Name, err)
		}
		providerIDs[i] = p.ID
	}

	results := make([]ProviderResult, len(o.sources))
	var g errgroup.Group
	for i, src := range o.sources {
		g.Go(func() error {
			results[i] = o.runProvider(ctx, summary.RunID, src, providerIDs[i], logger)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		summary.TotalSaved += r.Saved
		summary.TotalDuplicates += r.Duplicates
		summary.TotalErrors += r.WriteStats.Errors
		if r.Error != "" {
			summary.Errors[r.Provider] = r.Error
		}
	}
	summary.Providers = results
	summary.Duration = o.clock.Since(start)

	logger.Info("ingestion run complete",
		"providers", len(results),
		"saved", summary.TotalSaved,
		"duplicates", summary.TotalDuplicates,
		"errors", summary.TotalErrors,
		"failed_providers", len(summary.Errors),
		"duration", summary.Duration,
	)
	return summary, nil
}

func (o *Orchestrator) runProvider(ctx context.Context, runID string, src provider.Source, providerID int64, logger *slog.Logger) ProviderResult {
	start := o.clock.Now()
	logger = logger.With("provider", src.Name, "kind", src.Kind.String())
	res := ProviderResult{Provider: src.Name, Kind: src.Kind.String(), Status: protocol.IngestionSuccess}

	defer func() {
		res.Duration = o.clock.Since(start)
		o.metrics.ProviderDuration.WithLabelValues(src.Name).Observe(res.Duration.Seconds())
		o.metrics.ReadingsWritten.WithLabelValues(src.Name, "saved").Add(float64(res.Saved))
		o.metrics.ReadingsWritten.WithLabelValues(src.Name, "duplicate").Add(float64(res.Duplicates))
		o.metrics.ReadingsWritten.WithLabelValues(src.Name, "error").Add(float64(res.WriteStats.Errors))
		o.metrics.CandidatesDropped.WithLabelValues(src.Name, "unresolved").Add(float64(res.Unresolved))
		o.metrics.CandidatesDropped.WithLabelValues(src.Name, "unknown_pollutant").Add(float64(res.UnknownPollutant))
		o.metrics.CandidatesDropped.WithLabelValues(src.Name, "invalid").Add(float64(res.Invalid))

		o.record(ctx, logger, protocol.IngestionLogEntry{
			RunID:          runID,
			Timestamp:      o.clock.Now().UTC(),
			Provider:       src.Name,
			Status:         res.Status,
			RecordsFetched: res.Payloads,
			Saved:          res.Saved,
			Duplicates:     res.Duplicates,
			Error:          res.Error,
		})
	}()

	fail := func(stage string, err error) {
		res.Status = protocol.IngestionFailed
		res.Error = err.Error()
		o.metrics.ProviderFailures.WithLabelValues(src.Name, stage).Inc()
	}

	if src.Kind == provider.KindUnknown {
		logger.Warn("skipping provider with unknown kind")
		fail("normalize", fmt.Errorf("%w: %s", provider.ErrUnknownKind, src.Name))
		return res
	}

	payloads, err := o.fetcher.Fetch(ctx, src)
	res.Payloads = len(payloads)
	if err != nil {
		logger.Warn("provider fetch failed", "fetched", len(payloads), "error", err)
		fail("fetch", err)
		if len(payloads) == 0 {
			return res
		}
	}

	lookup, err := provider.NewLookup(ctx, o.store, o.opts.AutoCreateStations)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		fail("normalize", err)
		return res
	}
	norm := &normalizer{lookup: lookup, providerID: &providerID, logger: logger}

	var readings []database.Reading
	for _, p := range payloads {
		cands, err := provider.Parse(src.Kind, p)
		if err != nil {
			res.Rejected++
			logger.Warn("payload rejected", "error", err)
			o.record(ctx, logger, protocol.IngestionLogEntry{
				RunID:        runID,
				Timestamp:    o.clock.Now().UTC(),
				Provider:     src.Name,
				Status:       protocol.IngestionNormalizationError,
				Error:        err.Error(),
				RecordSample: protocol.SampleRecord(p.Raw),
			})
			continue
		}

		out, stats, err := norm.Normalize(ctx, p.Raw, cands)
		res.NormalizeStats.add(stats)
		if err != nil {
			logger.Error("normalization aborted", "error", err)
			fail("normalize", err)
			return res
		}
		readings = append(readings, out...)
	}

	stats, err := o.writer.Write(ctx, readings)
	res.WriteStats.add(stats)
	if err != nil {
		logger.Error("write aborted", "error", err)
		fail("write", err)
		return res
	}

	logger.Info("provider ingested",
		"payloads", res.Payloads,
		"rejected", res.Rejected,
		"candidates", res.Candidates,
		"dropped", res.Dropped(),
		"saved", res.Saved,
		"duplicates", res.Duplicates,
		"errors", res.WriteStats.Errors,
	)
	return res
}

// record publishes an audit entry. Audit failures are logged and never fail
// the batch.
func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, entry protocol.IngestionLogEntry) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := o.audit.Record(actx, entry); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed to record ingestion audit entry", "status", entry.Status, "error", err)
	}
}
