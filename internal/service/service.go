package service

import (
	"context"

	"geotrace/internal/logger"
	"geotrace/internal/metrics"
	"geotrace/internal/models"
	"geotrace/internal/repository"
)

// Ingestion validates and persists incoming telemetry records.
type Ingestion interface {
	Ingest(ctx context.Context, rec models.TelemetryRecord) (models.Receipt, error)
}

// Feed broadcasts accepted records to live dashboard connections.
type Feed interface {
	Subscribe(buffer int) (<-chan models.TelemetryRecord, func())
	Publish(rec models.TelemetryRecord)
}

// Service aggregates all sub-services.
type Service struct {
	Ingestion
	Feed
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, log *logger.Logger, m *metrics.Metrics) *Service {
	feed := NewFeedService()
	return &Service{
		Ingestion: NewIngestionService(repos.Records, repos.Receipts, feed, log, m),
		Feed:      feed,
	}
}
