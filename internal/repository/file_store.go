package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"geotrace/internal/models"
)

const (
	canonicalFileName = "trazas.json"
	backupPrefix      = "trazas_"
	backupExt         = ".json"
	backupStampLayout = "20060102_150405"
	jsonIndent        = "    "

	dirMode  = 0o755
	fileMode = 0o644
)

// FileStore writes every record to a canonical file and a timestamped backup.
//
// The canonical file always holds the last record saved. Backups are named
// with second resolution, so two saves within one second share a backup file
// and the later one wins.
type FileStore struct {
	dataDir   string
	backupDir string
	now       func() time.Time

	// mu serialises the canonical+backup pair.
	mu sync.Mutex
}

// NewFileStore creates dataDir and backupDir if they are missing.
func NewFileStore(dataDir, backupDir string) (*FileStore, error) {
	for _, dir := range []string{dataDir, backupDir} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, fmt.Errorf("create storage dir %q: %w", dir, err)
		}
	}
	return &FileStore{dataDir: dataDir, backupDir: backupDir, now: time.Now}, nil
}

// CanonicalPath returns the path of the file holding the latest record.
func (s *FileStore) CanonicalPath() string {
	return filepath.Join(s.dataDir, canonicalFileName)
}

// BackupPath returns the backup file name used for a save at t.
func (s *FileStore) BackupPath(t time.Time) string {
	return filepath.Join(s.backupDir, backupPrefix+t.Format(backupStampLayout)+backupExt)
}

// Save writes rec to the canonical file, then to the backup file, and returns
// the backup path. The canonical file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, rec models.TelemetryRecord) (string, error) {
	data, err := encodeRecord(rec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	backup := s.BackupPath(s.now())
	if err := replaceFile(s.CanonicalPath(), data); err != nil {
		return "", fmt.Errorf("write canonical file: %w", err)
	}
	if err := os.WriteFile(backup, data, fileMode); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	return backup, nil
}

// encodeRecord renders rec as indented JSON without HTML escaping.
func encodeRecord(rec models.TelemetryRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// replaceFile writes data to a temp file next to path and renames it over path.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
