package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/scheduler"
	"github.com/erp/syncbridge/internal/interfaces/http/dto"
	"github.com/erp/syncbridge/internal/interfaces/http/middleware"
)

// TaskQueue accepts trigger tasks and reports their status
type TaskQueue interface {
	Submit(req integration.TriggerRequest) (scheduler.Task, error)
	Get(id uuid.UUID) (scheduler.Task, error)
	List(limit int) []scheduler.Task
}

// TriggerHandler serves the diagnostic trigger API
type TriggerHandler struct {
	BaseHandler
	queue TaskQueue
}

// NewTriggerHandler creates a new TriggerHandler
func NewTriggerHandler(queue TaskQueue) *TriggerHandler {
	return &TriggerHandler{queue: queue}
}

// Trigger queues a diagnostic task and answers 202 with its ID.
// POST /admin/trigger {action, dry_run, target}; dry_run defaults to true.
func (h *TriggerHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	task, err := h.queue.Submit(integration.TriggerRequest{
		Action: integration.ParseTriggerAction(req.Action),
		DryRun: req.IsDryRun(),
		Target: strings.TrimSpace(req.Target),
	})
	switch {
	case errors.Is(err, scheduler.ErrQueueFull):
		h.ErrorWithCode(c, dto.ErrCodeQueueFull, "Task queue is full, retry later")
		return
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "Task queue is not running")
		return
	case err != nil:
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Trigger task queued",
		zap.String("task_id", task.ID.String()),
		zap.String("action", task.Request.Action.String()),
		zap.Bool("dry_run", task.Request.DryRun),
	)
	h.Accepted(c, dto.TriggerResponse{
		TaskID: task.ID.String(),
		Status: string(task.Status),
	})
}

// GetTask returns a task's status, result and timestamps.
// GET /admin/tasks/:id
func (h *TriggerHandler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.queue.Get(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTaskResponse(task))
}

// ListTasks returns recent tasks, newest first.
// GET /admin/tasks?limit=N
func (h *TriggerHandler) ListTasks(c *gin.Context) {
	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=0,max=1000"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	tasks := h.queue.List(query.Limit)
	resp := make([]dto.TaskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = dto.NewTaskResponse(t)
	}
	h.Success(c, resp)
}
