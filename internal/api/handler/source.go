package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/contentsync/internal/domain"
	"github.com/timmy/contentsync/internal/logger"
	"github.com/timmy/contentsync/internal/service"
	"github.com/timmy/contentsync/internal/source"
)

// SourceStore is the persistence the source endpoints need.
type SourceStore interface {
	EnsureSource(ctx context.Context, organizationID string, sourceType domain.SourceType, name string) (*domain.ContentSource, error)
	ListSyncRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}

// Syncer runs syncs and reports their progress.
type Syncer interface {
	SyncSource(ctx context.Context, sourceID string, opts source.FetchOptions) (*domain.SyncProgress, error)
	GetSyncProgress(sourceID string) (*domain.SyncProgress, bool)
}

// SourceHandler handles content source endpoints.
type SourceHandler struct {
	store  SourceStore
	syncer Syncer
	guard  *service.SyncGuard
}

// NewSourceHandler creates a new source handler.
// Parameters:
//   - store: source persistence.
//   - syncer: sync orchestrator.
//   - guard: single-flight guard shared with other sync callers.
// Returns:
//   - *SourceHandler: initialized handler.
func NewSourceHandler(store SourceStore, syncer Syncer, guard *service.SyncGuard) *SourceHandler {
	if guard == nil {
		guard = service.NewSyncGuard()
	}
	return &SourceHandler{store: store, syncer: syncer, guard: guard}
}

// EnsureSourceRequest represents the ensure source API request.
type EnsureSourceRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	Type           string `json:"type" binding:"required"`
	Name           string `json:"name"`
}

// EnsureSource handles POST /api/v1/sources/ensure.
func (h *SourceHandler) EnsureSource(c *gin.Context) {
	ctx := c.Request.Context()

	var req EnsureSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sourceType, err := domain.ParseSourceType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := req.Name
	if name == "" {
		name = string(sourceType)
	}

	src, err := h.store.EnsureSource(ctx, req.OrganizationID, sourceType, name)
	if err != nil {
		logger.CtxError(ctx, "Failed to ensure source: org=%s, type=%s, error=%v", req.OrganizationID, sourceType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ensure source"})
		return
	}
	c.JSON(http.StatusOK, src)
}

// SyncRequest represents the sync API request. All fields are optional.
type SyncRequest struct {
	Cursor string     `json:"cursor"`
	Limit  int        `json:"limit" binding:"omitempty,min=1,max=100"`
	Since  *time.Time `json:"since"`
	Until  *time.Time `json:"until"`
	Async  bool       `json:"async"`
}

// TriggerSync handles POST /api/v1/sources/:id/sync.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SourceHandler) TriggerSync(c *gin.Context) {
	sourceID := c.Param("id")
	ctx := logger.SetSourceID(c.Request.Context(), sourceID)

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := source.FetchOptions{Cursor: req.Cursor, Limit: req.Limit, Since: req.Since, Until: req.Until}

	if !h.guard.TryAcquire(sourceID) {
		logger.CtxWarn(ctx, "Sync request rejected: already running")
		c.JSON(http.StatusConflict, gin.H{"error": "Sync is already running for this source"})
		return
	}

	if req.Async {
		// Detach from the request so the sync outlives it.
		syncCtx := context.WithoutCancel(ctx)
		go func() {
			defer h.guard.Release(sourceID)
			if _, err := h.syncer.SyncSource(syncCtx, sourceID, opts); err != nil {
				logger.CtxError(syncCtx, "Background sync failed: %v", err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{
			"message":   "Sync started",
			"source_id": sourceID,
		})
		return
	}

	progress, err := h.syncer.SyncSource(ctx, sourceID, opts)
	h.guard.Release(sourceID)
	if err != nil {
		status := syncErrorStatus(err)
		body := gin.H{"error": err.Error()}
		if progress != nil {
			body["progress"] = progress
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func syncErrorStatus(err error) int {
	var syncErr *domain.SyncError
	switch {
	case errors.Is(err, domain.ErrSourceNotFound), errors.Is(err, domain.ErrAdapterNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetProgress handles GET /api/v1/sources/:id/progress.
func (h *SourceHandler) GetProgress(c *gin.Context) {
	progress, ok := h.syncer.GetSyncProgress(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No sync progress for this source"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListRuns handles GET /api/v1/sources/:id/runs.
func (h *SourceHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	runs, err := h.store.ListSyncRuns(ctx, c.Param("id"), limit)
	if err != nil {
		logger.CtxError(ctx, "Failed to list sync runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sync runs"})
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
