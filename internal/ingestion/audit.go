package ingestion

import (
	"context"
	"log/slog"

	"github.com/smukkama/airquality-server/internal/protocol"
	"github.com/smukkama/airquality-server/internal/queue"
)

// AuditLog records the outcome of each provider batch
type AuditLog interface {
	Record(ctx context.Context, entry protocol.IngestionLogEntry) error
}

// KafkaAuditLog publishes audit entries keyed by provider name
type KafkaAuditLog struct {
	publisher queue.Publisher
}

func NewKafkaAuditLog(p queue.Publisher) *KafkaAuditLog {
	return &KafkaAuditLog{publisher: p}
}

func (a *KafkaAuditLog) Record(ctx context.Context, entry protocol.IngestionLogEntry) error {
	value, err := protocol.EncodeIngestionLogEntry(&entry)
	if err != nil {
		return err
	}
	return a.publisher.Publish(ctx, entry.Provider, value)
}

// LogAuditLog writes audit entries to the structured log. It is used when
// no broker is configured.
type LogAuditLog struct {
	logger *slog.Logger
}

func NewLogAuditLog(logger *slog.Logger) *LogAuditLog {
	return &LogAuditLog{logger: logger}
}

func (a *LogAuditLog) Record(_ context.Context, e protocol.IngestionLogEntry) error {
	a.logger.Info("ingestion audit",
		"run_id", e.RunID,
		"provider", e.Provider,
		"status", e.Status,
		"records_fetched", e.RecordsFetched,
		"saved", e.Saved,
		"duplicates", e.Duplicates,
		"error", e.Error,
	)
	return nil
}
