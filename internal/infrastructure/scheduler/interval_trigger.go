package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
)

// Submitter accepts trigger requests
type Submitter interface {
	Submit(req integration.TriggerRequest) (Task, error)
}

// IntervalTrigger periodically submits the same trigger request
type IntervalTrigger struct {
	interval  time.Duration
	request   integration.TriggerRequest
	submitter Submitter
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a stopped interval trigger
func NewIntervalTrigger(interval time.Duration, req integration.TriggerRequest, submitter Submitter, logger *zap.Logger) (*IntervalTrigger, error) {
	if interval <= 0 {
		return nil, ErrInvalidConfig
	}
	return &IntervalTrigger{
		interval:  interval,
		request:   req,
		submitter: submitter,
		logger:    logger,
	}, nil
}

// Start starts the trigger loop. The first submission happens one interval after start.
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Interval trigger started",
		zap.Duration("interval", t.interval),
		zap.String("action", t.request.Action.String()),
		zap.Bool("dry_run", t.request.DryRun),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire()
		}
	}
}

func (t *IntervalTrigger) fire() {
	task, err := t.submitter.Submit(t.request)
	switch {
	case err == nil:
		t.logger.Debug("Interval trigger submitted task", zap.String("task_id", task.ID.String()))
	case errors.Is(err, ErrQueueFull):
		t.logger.Warn("Interval trigger skipped, task queue full")
	default:
		t.logger.Error("Interval trigger failed to submit task", zap.Error(err))
	}
}
