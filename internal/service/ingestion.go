package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geotrace/internal/logger"
	"geotrace/internal/metrics"
	"geotrace/internal/models"
	"geotrace/internal/repository"

	"github.com/google/uuid"
)

// ErrPersist wraps every storage failure returned by Ingest.
var ErrPersist = errors.New("persist telemetry record")

type IngestionService struct {
	records  repository.RecordStore
	receipts repository.ReceiptRepo
	feed     Feed
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewIngestionService(
	records repository.RecordStore,
	receipts repository.ReceiptRepo,
	feed Feed,
	log *logger.Logger,
	m *metrics.Metrics,
) *IngestionService {
	if log == nil {
		log = logger.NewNop()
	}
	return &IngestionService{
		records:  records,
		receipts: receipts,
		feed:     feed,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Ingest validates rec, writes it to the canonical and backup files, records
// a receipt and publishes it to live subscribers.
//
// Validation failures return a *ValidationError and never touch storage.
// Storage failures are wrapped in ErrPersist. A receipt ledger failure is
// logged and does not fail the call: the files are the durable copy.
func (s *IngestionService) Ingest(ctx context.Context, rec models.TelemetryRecord) (models.Receipt, error) {
	if err := ValidateRecord(rec); err != nil {
		s.metrics.RecordIngest(metrics.ResultRejected)
		return models.Receipt{}, err
	}

	start := time.Now()
	backup, err := s.records.Save(ctx, rec)
	s.metrics.ObserveWrite(time.Since(start))
	if err != nil {
		s.metrics.RecordIngest(metrics.ResultFailed)
		return models.Receipt{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.metrics.RecordIngest(metrics.ResultAccepted)

	lat, _ := rec.Float(models.FieldLatitude)
	lon, _ := rec.Float(models.FieldLongitude)
	receipt := models.Receipt{
		ID:         uuid.NewString(),
		ReceivedAt: s.now().UTC(),
		BackupFile: backup,
		DeviceID:   rec.DeviceID(),
		Latitude:   lat,
		Longitude:  lon,
	}

	if s.receipts != nil {
		if err := s.receipts.Append(ctx, receipt); err != nil {
			s.log.Warnw("receipt_append_failed", "err", err, "receipt_id", receipt.ID, "backup_file", backup)
		}
	}
	if s.feed != nil {
		s.feed.Publish(rec)
	}

	s.log.Infow("telemetry_saved",
		"receipt_id", receipt.ID,
		"device_id", receipt.DeviceID,
		"backup_file", backup,
		"record", map[string]any(rec),
	)
	return receipt, nil
}
