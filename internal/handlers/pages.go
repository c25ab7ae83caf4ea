package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"geotrace"

	"github.com/gin-gonic/gin"
)

const (
	dashboardTemplate = "dashboard.html"
	errNotFound       = "not found"
)

// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  geotrace.HealthResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, geotrace.HealthResponse{Status: geotrace.StatusOK})
}

// dashboard serves the dashboard page from the templates directory.
func (h *Handler) dashboard(c *gin.Context) {
	path := filepath.Join(h.cfg.TemplatesDir, dashboardTemplate)
	if _, err := os.Stat(path); err != nil {
		h.log.Warnw("dashboard_template_missing", "path", path, "err", err)
		h.notFound(c)
		return
	}
	c.File(path)
}

// notFound answers every unknown route with the JSON 404 body.
func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, geotrace.ErrorResponse{Error: errNotFound})
}
