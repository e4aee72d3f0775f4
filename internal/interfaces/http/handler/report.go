package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
)

// Reporter runs the synchronous dispatch report
type Reporter interface {
	Report(ctx context.Context) *integrationapp.ReportResult
}

// ReportHandler serves the synchronous report
type ReportHandler struct {
	reporter Reporter
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reporter Reporter) *ReportHandler {
	return &ReportHandler{reporter: reporter}
}

// Report sends the report sample to the configured target and returns
// {ok, target, response} or {ok: false, error} with status 500.
// GET /report
func (h *ReportHandler) Report(c *gin.Context) {
	result := h.reporter.Report(c.Request.Context())
	if !result.OK {
		logger.GetGinLogger(c).Warn("Report dispatch failed",
			zap.String("target", result.Target),
			zap.String("error", result.Error),
		)
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
