package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/syncbridge/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Task Types
// ---------------------------------------------------------------------------

// TaskStatus represents the lifecycle state of a trigger task
type TaskStatus string

const (
	TaskStatusQueued   TaskStatus = "queued"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusFinished TaskStatus = "finished"
	TaskStatusError    TaskStatus = "error"
)

// IsTerminal returns true once the task will not change again
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusFinished || s == TaskStatusError
}

// Task is a diagnostic trigger run. Values returned by the queue are copies.
type Task struct {
	ID         uuid.UUID
	Request    integration.TriggerRequest
	Status     TaskStatus
	Result     any
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func newTask(req integration.TriggerRequest, now time.Time) *Task {
	return &Task{
		ID:        uuid.New(),
		Request:   req,
		Status:    TaskStatusQueued,
		CreatedAt: now,
	}
}

func (t *Task) start(now time.Time) {
	t.Status = TaskStatusRunning
	t.StartedAt = &now
}

func (t *Task) finish(result any, now time.Time) {
	t.Status = TaskStatusFinished
	t.Result = result
	t.FinishedAt = &now
}

func (t *Task) fail(err string, now time.Time) {
	t.Status = TaskStatusError
	t.Error = err
	t.FinishedAt = &now
}
