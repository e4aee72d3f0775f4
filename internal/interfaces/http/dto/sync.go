package dto

import (
	"time"

	"github.com/erp/syncbridge/internal/infrastructure/scheduler"
)

// TriggerRequest is the body of POST /admin/trigger. The action is not
// restricted here: unknown actions are accepted and fail inside the task.
type TriggerRequest struct {
	Action string `json:"action" binding:"omitempty,max=64"`
	DryRun *bool  `json:"dry_run"`
	Target string `json:"target" binding:"omitempty,max=255"`
}

// IsDryRun returns the requested mode, defaulting to a dry run
func (r *TriggerRequest) IsDryRun() bool {
	return r.DryRun == nil || *r.DryRun
}

// TriggerResponse is returned when a task has been queued
type TriggerResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskResponse describes a trigger task
type TaskResponse struct {
	TaskID     string     `json:"task_id"`
	Action     string     `json:"action"`
	DryRun     bool       `json:"dry_run"`
	Target     string     `json:"target,omitempty"`
	Status     string     `json:"status"`
	Result     any        `json:"result"`
	Error      *string    `json:"error"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// NewTaskResponse converts a task snapshot
func NewTaskResponse(t scheduler.Task) TaskResponse {
	resp := TaskResponse{
		TaskID:     t.ID.String(),
		Action:     t.Request.Action.String(),
		DryRun:     t.Request.DryRun,
		Target:     t.Request.Target,
		Status:     string(t.Status),
		Result:     t.Result,
		CreatedAt:  t.CreatedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
	if t.Error != "" {
		msg := t.Error
		resp.Error = &msg
	}
	return resp
}
