package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SystemHandler serves liveness checks
type SystemHandler struct {
	version  string
	renderer string
	now      func() time.Time
}

// NewSystemHandler creates a new SystemHandler reporting version and the export strategy
func NewSystemHandler(version, renderer string) *SystemHandler {
	return &SystemHandler{
		version:  version,
		renderer: renderer,
		now:      time.Now,
	}
}

// RegisterRoutes registers GET /health under rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// RegisterRootRoutes registers the unprefixed GET /health
func (h *SystemHandler) RegisterRootRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports that the process is up. It never touches the browser.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Renderer:  h.renderer,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	})
}
