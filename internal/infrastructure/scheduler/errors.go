package scheduler

import (
	"errors"

	"github.com/erp/syncbridge/internal/domain/shared"
)

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped queue
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrQueueFull is returned when the task queue is full
	ErrQueueFull = errors.New("task queue is full")

	// ErrTaskNotFound is returned for unknown task IDs
	ErrTaskNotFound = shared.NewDomainError("NOT_FOUND", "Task not found")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
