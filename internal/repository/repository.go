package repository

import (
	"context"
	"database/sql"

	"geotrace/internal/models"
)

// RecordStore persists the latest record and its backup copy.
type RecordStore interface {
	Save(ctx context.Context, rec models.TelemetryRecord) (backupPath string, err error)
}

// ReceiptRepo is the append-only ledger of accepted records.
type ReceiptRepo interface {
	Append(ctx context.Context, r models.Receipt) error
}

type Repository struct {
	Records  RecordStore
	Receipts ReceiptRepo
}

func NewRepository(db *sql.DB, store *FileStore) *Repository {
	return &Repository{
		Records:  store,
		Receipts: NewReceiptSQLite(db),
	}
}
