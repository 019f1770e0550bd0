package web

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heyao-tools/heyaobot/internal/heyao"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthData struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Assets    map[string]string `json:"assets"`
}

// DebugHandler exposes the query and render pipeline over HTTP so operators
// can exercise it without a chat platform attached.
type DebugHandler struct {
	api      heyao.OrderAPI
	renderer *heyao.ImageRenderer
	logger   *zap.Logger
}

func NewDebugHandler(api heyao.OrderAPI, renderer *heyao.ImageRenderer, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		api:      api,
		renderer: renderer,
		logger:   logger,
	}
}

// HealthCheck reports asset availability. A missing template makes renders
// fail outright, so that counts as unhealthy; a missing font only degrades
// output to the fallback face.
func (h *DebugHandler) HealthCheck(c *gin.Context) {
	assets := h.renderer.AssetStatus()

	overall := "healthy"
	if assets["font"] != "ok" {
		overall = "degraded"
	}
	statusCode := http.StatusOK
	if assets["template"] != "ok" {
		overall = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, APIResponse{
		Success: overall != "unhealthy",
		Data: HealthData{
			Status:    overall,
			Timestamp: time.Now(),
			Assets:    assets,
		},
	})
}

// RenderPreview renders a notification image from the posted field values
// and streams it back. Previews never touch the last-image bookkeeping, and
// the scratch file is removed once served.
func (h *DebugHandler) RenderPreview(c *gin.Context) {
	var details heyao.OrderDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid field payload: "+err.Error())
		return
	}

	path, report, err := h.renderer.Render(details)
	if err != nil {
		h.logger.Error("Preview render failed", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Render failed")
		return
	}

	if c.Query("report") == "1" {
		c.JSON(http.StatusOK, APIResponse{
			Success: true,
			Data:    gin.H{"path": path, "fields": report},
		})
		return
	}

	c.File(path)
	if err := os.Remove(path); err != nil {
		h.logger.Warn("Preview cleanup failed", zap.String("path", path), zap.Error(err))
	}
}

// QueryOrder runs a live lookup and returns the extracted display fields.
func (h *DebugHandler) QueryOrder(c *gin.Context) {
	orderID := strings.TrimSpace(c.Query("order_id"))
	if orderID == "" {
		h.respondError(c, http.StatusBadRequest, "order_id is required")
		return
	}

	resp, err := h.api.Query(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("Debug lookup failed", zap.String("order_id", orderID), zap.Error(err))
		h.respondError(c, http.StatusBadGateway, "Lookup failed")
		return
	}

	details, err := heyao.ExtractOrderDetails(resp, orderID)
	if err != nil {
		h.respondError(c, http.StatusNotFound, err.Error())
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: details})
}

func (h *DebugHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{Success: false, Error: message})
}
