package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/telemetry"
)

// TaskExecutor runs a trigger request and returns a JSON-serializable result
type TaskExecutor interface {
	Execute(ctx context.Context, req integration.TriggerRequest) (any, error)
}

// TaskExecutorFunc adapts a function to TaskExecutor
type TaskExecutorFunc func(ctx context.Context, req integration.TriggerRequest) (any, error)

// Execute calls f
func (f TaskExecutorFunc) Execute(ctx context.Context, req integration.TriggerRequest) (any, error) {
	return f(ctx, req)
}

// TaskQueueConfig holds worker pool settings
type TaskQueueConfig struct {
	Workers          int
	QueueSize        int
	TaskTimeout      time.Duration
	MaxRetainedTasks int // finished tasks beyond this are evicted oldest first
}

// DefaultTaskQueueConfig returns the default configuration
func DefaultTaskQueueConfig() TaskQueueConfig {
	return TaskQueueConfig{
		Workers:          4,
		QueueSize:        64,
		TaskTimeout:      time.Minute,
		MaxRetainedTasks: 500,
	}
}

// Validate checks the configuration
func (c *TaskQueueConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("%w: task timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetainedTasks <= 0 {
		return fmt.Errorf("%w: max retained tasks must be positive", ErrInvalidConfig)
	}
	return nil
}

// TaskQueue runs trigger tasks on a bounded worker pool and keeps their
// status for polling.
type TaskQueue struct {
	config   TaskQueueConfig
	executor TaskExecutor
	metrics  *telemetry.SyncMetrics
	logger   *zap.Logger
	now      func() time.Time

	queue     chan *Task
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	tasksMu sync.RWMutex
	tasks   map[uuid.UUID]*Task
	order   []uuid.UUID // submission order, oldest first
}

// TaskQueueOption configures a TaskQueue
type TaskQueueOption func(*TaskQueue)

// WithMetrics records finished tasks on m
func WithMetrics(m *telemetry.SyncMetrics) TaskQueueOption {
	return func(q *TaskQueue) {
		q.metrics = m
	}
}

// WithClock sets the clock used for task timestamps
func WithClock(now func() time.Time) TaskQueueOption {
	return func(q *TaskQueue) {
		q.now = now
	}
}

// NewTaskQueue creates a stopped task queue
func NewTaskQueue(config TaskQueueConfig, executor TaskExecutor, logger *zap.Logger, opts ...TaskQueueOption) (*TaskQueue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	q := &TaskQueue{
		config:   config,
		executor: executor,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan *Task, config.QueueSize),
		tasks:    make(map[uuid.UUID]*Task),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Start starts the worker pool
func (q *TaskQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return nil
	}
	q.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.logger.Info("Task queue started",
		zap.Int("workers", q.config.Workers),
		zap.Int("queue_size", q.config.QueueSize),
		zap.Duration("task_timeout", q.config.TaskTimeout),
	)
	return nil
}

// Stop cancels running tasks and waits for the workers until ctx is done.
// Tasks still queued stay in the queued state.
func (q *TaskQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Task queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Task queue stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues a request and returns the queued task
func (q *TaskQueue) Submit(req integration.TriggerRequest) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.isRunning {
		return Task{}, ErrSchedulerNotRunning
	}

	task := newTask(req, q.now())

	q.tasksMu.Lock()
	q.tasks[task.ID] = task
	q.order = append(q.order, task.ID)
	snapshot := *task
	q.tasksMu.Unlock()

	select {
	case q.queue <- task:
	default:
		q.tasksMu.Lock()
		delete(q.tasks, task.ID)
		q.order = q.order[:len(q.order)-1]
		q.tasksMu.Unlock()
		return Task{}, ErrQueueFull
	}

	q.logger.Debug("Task submitted",
		zap.String("task_id", task.ID.String()),
		zap.String("action", req.Action.String()),
		zap.Bool("dry_run", req.DryRun),
	)
	q.evict()
	return snapshot, nil
}

// Get returns a copy of the task with the given ID
func (q *TaskQueue) Get(id uuid.UUID) (Task, error) {
	q.tasksMu.RLock()
	defer q.tasksMu.RUnlock()

	task, ok := q.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// List returns up to limit tasks, newest first. limit <= 0 returns all.
func (q *TaskQueue) List(limit int) []Task {
	q.tasksMu.RLock()
	defer q.tasksMu.RUnlock()

	if limit <= 0 || limit > len(q.order) {
		limit = len(q.order)
	}
	result := make([]Task, 0, limit)
	for i := len(q.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, *q.tasks[q.order[i]])
	}
	return result
}

func (q *TaskQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.queue:
			q.process(ctx, task, workerID)
		}
	}
}

func (q *TaskQueue) process(ctx context.Context, task *Task, workerID int) {
	q.update(func() { task.start(q.now()) })

	taskCtx, cancel := context.WithTimeout(ctx, q.config.TaskTimeout)
	defer cancel()
	taskCtx, taskLog := logger.WithTaskID(taskCtx, q.logger, task.ID.String())

	taskLog.Info("Processing task",
		zap.Int("worker_id", workerID),
		zap.String("action", task.Request.Action.String()),
		zap.Bool("dry_run", task.Request.DryRun),
	)

	result, err := q.execute(taskCtx, task.Request)
	if err != nil {
		q.update(func() { task.fail(err.Error(), q.now()) })
		taskLog.Error("Task failed", zap.Error(err))
	} else {
		q.update(func() { task.finish(result, q.now()) })
		taskLog.Info("Task finished")
	}

	q.metrics.RecordTask(ctx, task.Request.Action.String(), string(task.Status))
	q.evict()
}

// execute runs the executor, converting a panic into a task error
func (q *TaskQueue) execute(ctx context.Context, req integration.TriggerRequest) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Panic recovered in task",
				zap.Any("error", r),
				zap.Stack("stacktrace"),
			)
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return q.executor.Execute(ctx, req)
}

func (q *TaskQueue) update(fn func()) {
	q.tasksMu.Lock()
	defer q.tasksMu.Unlock()
	fn()
}

// evict drops the oldest terminal tasks while more than MaxRetainedTasks are kept
func (q *TaskQueue) evict() {
	q.tasksMu.Lock()
	defer q.tasksMu.Unlock()

	excess := len(q.order) - q.config.MaxRetainedTasks
	if excess <= 0 {
		return
	}

	kept := q.order[:0]
	for _, id := range q.order {
		if excess > 0 && q.tasks[id].Status.IsTerminal() {
			delete(q.tasks, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}
