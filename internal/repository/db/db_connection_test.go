package db

import (
	"path/filepath"
	"testing"
)

func TestInitDB_CreatesReceiptsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")

	conn, err := InitDB(path)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Exec(
		`INSERT INTO receipts (id, received_at, backup_file, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
		"r-1", "2023-01-01 12:00:00", "b.json", 1.0, 2.0,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM receipts`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 row, got %d", n)
	}
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	for i := 0; i < 2; i++ {
		conn, err := InitDB(path)
		if err != nil {
			t.Fatalf("InitDB #%d: %v", i+1, err)
		}
		_ = conn.Close()
	}
}

func TestInitDB_InMemory(t *testing.T) {
	conn, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Exec(`SELECT id FROM receipts`); err != nil {
		t.Fatalf("receipts table missing: %v", err)
	}
}
