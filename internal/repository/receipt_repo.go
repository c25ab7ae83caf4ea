package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"geotrace/internal/models"

	"github.com/google/uuid"
)

type ReceiptSQLite struct {
	db *sql.DB
}

func NewReceiptSQLite(db *sql.DB) *ReceiptSQLite { return &ReceiptSQLite{db: db} }

const (
	insertReceiptSQL = `
		INSERT INTO receipts (id, received_at, backup_file, device_id, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	sqliteTimestampLayout = "2006-01-02 15:04:05"
)

// Append inserts a receipt. If ID or ReceivedAt are empty, they're set.
func (r *ReceiptSQLite) Append(ctx context.Context, rc models.Receipt) error {
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	if rc.ReceivedAt.IsZero() {
		rc.ReceivedAt = time.Now().UTC()
	} else {
		rc.ReceivedAt = rc.ReceivedAt.UTC()
	}

	var device *string
	if d := strings.TrimSpace(rc.DeviceID); d != "" {
		device = &d
	}

	_, err := r.db.ExecContext(ctx, insertReceiptSQL,
		rc.ID,
		rc.ReceivedAt.Format(sqliteTimestampLayout),
		rc.BackupFile,
		device,
		rc.Latitude,
		rc.Longitude,
	)
	return err
}
