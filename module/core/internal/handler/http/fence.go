package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
)

type fenceStore interface {
	Fences() []domain.Geofence
	History() []domain.GeofenceEvent
	Add(ctx context.Context, g domain.Geofence) (domain.Geofence, error)
	Update(ctx context.Context, g domain.Geofence) (domain.Geofence, error)
	Remove(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	Reset(ctx context.Context) error
}

type fenceRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Radius    float64  `json:"radius" binding:"required"`
	IsActive  *bool    `json:"isActive"`
}

func (r fenceRequest) toDomain() domain.Geofence {
	return domain.Geofence{
		ID:       r.ID,
		Name:     r.Name,
		Lat:      *r.Latitude,
		Lon:      *r.Longitude,
		Radius:   r.Radius,
		IsActive: r.IsActive == nil || *r.IsActive,
	}
}

type FenceHandler struct {
	store  fenceStore
	logger *zap.Logger
}

func NewFenceHandler(store fenceStore, logger *zap.Logger) *FenceHandler {
	return &FenceHandler{store: store, logger: logger}
}

func (h *FenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/fences", h.ListFences)
	r.POST("/fences", h.AddFence)
	r.PUT("/fences/:id", h.UpdateFence)
	r.DELETE("/fences/:id", h.RemoveFence)
	r.GET("/history", h.ListHistory)
	r.DELETE("/history", h.ClearHistory)
	r.DELETE("/data", h.Reset)
}

func (h *FenceHandler) ListFences(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Fences())
}

func (h *FenceHandler) AddFence(c *gin.Context) {
	var req fenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gf, err := h.store.Add(c.Request.Context(), req.toDomain())
	if !h.mutationOK(c, "add fence", err) {
		return
	}
	c.JSON(http.StatusCreated, withWarning(gin.H{"fence": gf}, err))
}

func (h *FenceHandler) UpdateFence(c *gin.Context) {
	var req fenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("id")

	gf, err := h.store.Update(c.Request.Context(), req.toDomain())
	if !h.mutationOK(c, "update fence", err) {
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"fence": gf}, err))
}

func (h *FenceHandler) RemoveFence(c *gin.Context) {
	err := h.store.Remove(c.Request.Context(), c.Param("id"))
	if !h.mutationOK(c, "remove fence", err) {
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"removed": c.Param("id")}, err))
}

func (h *FenceHandler) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.History())
}

func (h *FenceHandler) ClearHistory(c *gin.Context) {
	err := h.store.ClearHistory(c.Request.Context())
	if !h.mutationOK(c, "clear history", err) {
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"cleared": true}, err))
}

func (h *FenceHandler) Reset(c *gin.Context) {
	err := h.store.Reset(c.Request.Context())
	if !h.mutationOK(c, "reset data", err) {
		return
	}
	c.JSON(http.StatusOK, withWarning(gin.H{"reset": true}, err))
}

// mutationOK writes the error response for rejected mutations. A persistence
// failure is not a rejection: the change is live in memory, so it only logs.
func (h *FenceHandler) mutationOK(c *gin.Context, op string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrPersistence):
		h.logger.Error(op, zap.String("category", "persistence"), zap.Error(err))
		return true
	case errors.Is(err, domain.ErrFenceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "fence not found"})
	case errors.Is(err, domain.ErrInvalidFence):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	return false
}

func withWarning(body gin.H, err error) gin.H {
	if err != nil {
		body["warning"] = "change not persisted"
	}
	return body
}
