package handlers

import (
	"context"
	"path/filepath"
	"testing"

	"geotrace/internal/config"
	"geotrace/internal/models"
	"geotrace/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

// mockIngestion runs the real validation and returns the configured result.
type mockIngestion struct {
	receipt models.Receipt
	err     error

	calls   int
	lastRec models.TelemetryRecord
}

func (m *mockIngestion) Ingest(ctx context.Context, rec models.TelemetryRecord) (models.Receipt, error) {
	m.calls++
	m.lastRec = rec
	if err := service.ValidateRecord(rec); err != nil {
		return models.Receipt{}, err
	}
	return m.receipt, m.err
}

// ---- Shared Test Helpers ----

// testConfig returns the testing profile rooted in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Resolve(config.EnvTesting, t.TempDir())
	cfg.StaticDir = filepath.Join(t.TempDir(), "static")
	cfg.TemplatesDir = filepath.Join(t.TempDir(), "templates")
	return &cfg
}

func newTestServices(ing service.Ingestion) *service.Service {
	return &service.Service{Ingestion: ing, Feed: service.NewFeedService()}
}

func newTestRouter(s *service.Service, cfg *config.Config) *gin.Engine {
	h := NewHandler(s, cfg, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
