package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/contentsync/internal/domain"
)

// AdapterLister lists the registered source types.
type AdapterLister interface {
	List() []domain.SourceType
}

// HealthHandler handles health check and discovery endpoints
type HealthHandler struct {
	adapters AdapterLister
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(adapters AdapterLister) *HealthHandler {
	return &HealthHandler{adapters: adapters}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ListAdapters handles GET /api/v1/adapters.
func (h *HealthHandler) ListAdapters(c *gin.Context) {
	types := h.adapters.List()
	if types == nil {
		types = []domain.SourceType{}
	}
	c.JSON(http.StatusOK, gin.H{
		"adapters": types,
	})
}
