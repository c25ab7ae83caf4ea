package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"geotrace/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestReceiptAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewReceiptSQLite(db)

	// id and timestamp are generated, so only their presence is checked.
	mock.ExpectExec(regexp.QuoteMeta(insertReceiptSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "backups/trazas_20230101_120000.json", "dev-1", 40.7128, -74.006).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.Receipt{
		BackupFile: "backups/trazas_20230101_120000.json",
		DeviceID:   "  dev-1 ",
		Latitude:   40.7128,
		Longitude:  -74.006,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReceiptAppend_ExplicitIDAndTimeInUTC(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewReceiptSQLite(db)

	at := time.Date(2023, 1, 1, 15, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	mock.ExpectExec(regexp.QuoteMeta(insertReceiptSQL)).
		WithArgs("r-1", "2023-01-01 12:00:00", "b.json", nil, 1.5, 2.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.Receipt{
		ID:         "r-1",
		ReceivedAt: at,
		BackupFile: "b.json",
		Latitude:   1.5,
		Longitude:  2.5,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReceiptAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewReceiptSQLite(db)

	mock.ExpectExec("INSERT INTO receipts").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.Receipt{BackupFile: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
