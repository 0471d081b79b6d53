package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/service"
)

// ItemProcessor enriches stored content items.
type ItemProcessor interface {
	ProcessItem(ctx context.Context, id string) (*domain.ContentItem, error)
	ProcessItemsBatch(ctx context.Context, ids []string, opts service.BatchOptions) *service.BatchResult
}

// ItemHandler handles content item endpoints.
type ItemHandler struct {
	processor ItemProcessor
}

// NewItemHandler creates a new item handler.
func NewItemHandler(processor ItemProcessor) *ItemHandler {
	return &ItemHandler{processor: processor}
}

// ProcessItem handles POST /api/v1/items/:id/process.
func (h *ItemHandler) ProcessItem(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	item, err := h.processor.ProcessItem(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		logger.CtxError(ctx, "Failed to process item: id=%s, error=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, item)
}

// BatchProcessRequest represents the batch processing API request.
type BatchProcessRequest struct {
	ItemIDs     []string `json:"item_ids" binding:"required,min=1,max=1000"`
	Concurrency int      `json:"concurrency" binding:"omitempty,min=1,max=50"`
}

// ProcessBatch handles POST /api/v1/items/process.
func (h *ItemHandler) ProcessBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req BatchProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.processor.ProcessItemsBatch(ctx, req.ItemIDs, service.BatchOptions{Concurrency: req.Concurrency})
	c.JSON(http.StatusOK, result)
}
