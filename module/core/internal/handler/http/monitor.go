package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/service"
)

type monitorService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Submit(ctx context.Context, fix domain.Fix) error
	Status() service.MonitorStatus
}

type monitoringFlag interface {
	SetMonitoringActive(ctx context.Context, active bool) error
}

type planResponse struct {
	IntervalSeconds float64             `json:"interval_seconds"`
	MinDistance     float64             `json:"min_distance_m"`
	Tier            domain.ProviderTier `json:"tier"`
}

type statusResponse struct {
	Running bool          `json:"running"`
	Plan    *planResponse `json:"plan,omitempty"`
	LastFix *domain.Fix   `json:"last_fix,omitempty"`
}

type fixRequest struct {
	Latitude  float64  `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" binding:"gte=-180,lte=180"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  *float64 `json:"accuracy" binding:"omitempty,gte=0"`
}

type MonitorHandler struct {
	monitor monitorService
	flag    monitoringFlag
	logger  *zap.Logger
	now     func() time.Time
}

func NewMonitorHandler(monitor monitorService, flag monitoringFlag, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, flag: flag, logger: logger, now: time.Now}
}

func (h *MonitorHandler) Register(r *gin.RouterGroup) {
	r.GET("/monitor", h.GetStatus)
	r.POST("/monitor/start", h.Start)
	r.POST("/monitor/stop", h.Stop)
	r.POST("/fixes", h.SubmitFix)
}

func (h *MonitorHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toStatusResponse(h.monitor.Status()))
}

func (h *MonitorHandler) Start(c *gin.Context) {
	if err := h.monitor.Start(c.Request.Context()); err != nil {
		h.logger.Error("start monitor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start monitor"})
		return
	}
	h.setFlag(c.Request.Context(), true)
	c.JSON(http.StatusOK, toStatusResponse(h.monitor.Status()))
}

func (h *MonitorHandler) Stop(c *gin.Context) {
	if err := h.monitor.Stop(c.Request.Context()); err != nil {
		// subscriptions may be left behind but the worker is gone
		h.logger.Error("stop monitor", zap.Error(err))
	}
	h.setFlag(c.Request.Context(), false)
	c.JSON(http.StatusOK, toStatusResponse(h.monitor.Status()))
}

func (h *MonitorHandler) SubmitFix(c *gin.Context) {
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := h.now()
	if req.Timestamp > 0 {
		ts = time.UnixMilli(req.Timestamp)
	}
	fix := domain.Fix{Lat: req.Latitude, Lon: req.Longitude, Timestamp: ts, Accuracy: req.Accuracy}

	err := h.monitor.Submit(c.Request.Context(), fix)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	case errors.Is(err, domain.ErrMonitorStopped):
		c.JSON(http.StatusConflict, gin.H{"error": "monitor is not running"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}

func (h *MonitorHandler) setFlag(ctx context.Context, active bool) {
	if err := h.flag.SetMonitoringActive(ctx, active); err != nil {
		h.logger.Error("persist monitoring flag", zap.String("category", "persistence"), zap.Error(err))
	}
}

func toStatusResponse(st service.MonitorStatus) statusResponse {
	resp := statusResponse{Running: st.Running, LastFix: st.LastFix}
	if st.Plan != nil {
		resp.Plan = &planResponse{
			IntervalSeconds: st.Plan.Interval.Seconds(),
			MinDistance:     st.Plan.MinDistance,
			Tier:            st.Plan.Tier,
		}
	}
	return resp
}
