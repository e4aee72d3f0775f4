package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
)

// SyncResultQuery lists recent sync outcomes
type SyncResultQuery interface {
	ListRecent(ctx context.Context, limit int) ([]integrationapp.SyncResultResponse, error)
}

// SyncResultHandler serves the sync result history
type SyncResultHandler struct {
	BaseHandler
	query SyncResultQuery
}

// NewSyncResultHandler creates a new SyncResultHandler
func NewSyncResultHandler(query SyncResultQuery) *SyncResultHandler {
	return &SyncResultHandler{query: query}
}

// List returns recent outcomes, newest first.
// GET /sync-results?limit=N; a missing or non-numeric limit uses the default.
func (h *SyncResultHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	rows, err := h.query.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}
