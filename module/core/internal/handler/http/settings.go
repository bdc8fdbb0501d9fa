package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
)

type settingsStore interface {
	PollingMode() domain.PollingMode
	SetPollingMode(ctx context.Context, mode domain.PollingMode) error
	MonitoringActive() bool
	MapState() domain.MapState
	SetMapState(ctx context.Context, ms domain.MapState) error
}

type refresher interface {
	Refresh()
}

type settingsResponse struct {
	PollingMode      domain.PollingMode `json:"pollingMode"`
	MonitoringActive bool               `json:"isMonitoringActive"`
	Map              domain.MapState    `json:"map"`
}

type pollingModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type mapRequest struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Zoom      float64 `json:"zoom" binding:"gte=0"`
}

type SettingsHandler struct {
	settings settingsStore
	monitor  refresher
	logger   *zap.Logger
}

func NewSettingsHandler(settings settingsStore, monitor refresher, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, monitor: monitor, logger: logger}
}

func (h *SettingsHandler) Register(r *gin.RouterGroup) {
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings/polling-mode", h.SetPollingMode)
	r.PUT("/settings/map", h.SetMapState)
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *SettingsHandler) SetPollingMode(c *gin.Context) {
	var req pollingModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := domain.ParsePollingMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.settings.SetPollingMode(c.Request.Context(), mode)
	if !h.persisted("set polling mode", err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.monitor.Refresh()
	c.JSON(http.StatusOK, withWarning(gin.H{"settings": h.snapshot()}, err))
}

func (h *SettingsHandler) SetMapState(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.settings.SetMapState(c.Request.Context(), domain.MapState{Lat: req.Latitude, Lon: req.Longitude, Zoom: req.Zoom})
	if !h.persisted("set map state", err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"settings": h.snapshot()}, err))
}

// persisted reports whether the request may still succeed; a persistence
// failure is logged and tolerated.
func (h *SettingsHandler) persisted(op string, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrPersistence) {
		h.logger.Error(op, zap.String("category", "persistence"), zap.Error(err))
		return true
	}
	h.logger.Error(op, zap.Error(err))
	return false
}

func (h *SettingsHandler) snapshot() settingsResponse {
	return settingsResponse{
		PollingMode:      h.settings.PollingMode(),
		MonitoringActive: h.settings.MonitoringActive(),
		Map:              h.settings.MapState(),
	}
}
