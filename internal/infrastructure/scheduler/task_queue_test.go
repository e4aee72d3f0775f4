package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
)

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

func testConfig() TaskQueueConfig {
	return TaskQueueConfig{
		Workers:          2,
		QueueSize:        8,
		TaskTimeout:      time.Second,
		MaxRetainedTasks: 100,
	}
}

func waitForStatus(t *testing.T, q *TaskQueue, id uuid.UUID) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		var err error
		task, err = q.Get(id)
		require.NoError(t, err)
		return task.Status.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func startQueue(t *testing.T, cfg TaskQueueConfig, exec TaskExecutor) *TaskQueue {
	t.Helper()
	q, err := NewTaskQueue(cfg, exec, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return q
}

func TestTaskQueueConfig_Validate(t *testing.T) {
	defaults := DefaultTaskQueueConfig()
	assert.NoError(t, defaults.Validate())

	tests := []struct {
		name   string
		mutate func(*TaskQueueConfig)
	}{
		{"zero workers", func(c *TaskQueueConfig) { c.Workers = 0 }},
		{"zero queue", func(c *TaskQueueConfig) { c.QueueSize = 0 }},
		{"zero timeout", func(c *TaskQueueConfig) { c.TaskTimeout = 0 }},
		{"zero retention", func(c *TaskQueueConfig) { c.MaxRetainedTasks = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTaskQueueConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			_, err := NewTaskQueue(cfg, nil, newTestLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestTaskQueue_SubmitNotRunning(t *testing.T) {
	q, err := NewTaskQueue(testConfig(), nil, newTestLogger())
	require.NoError(t, err)

	_, err = q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestTaskQueue_TaskFinishes(t *testing.T) {
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		return map[string]any{"action": req.Action.String(), "dry_run": req.DryRun}, nil
	})
	q := startQueue(t, testConfig(), exec)

	submitted, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, TaskStatusQueued, submitted.Status)
	assert.NotEqual(t, uuid.Nil, submitted.ID)

	task := waitForStatus(t, q, submitted.ID)
	assert.Equal(t, TaskStatusFinished, task.Status)
	assert.Empty(t, task.Error)
	assert.Equal(t, map[string]any{"action": "get-token", "dry_run": true}, task.Result)
	require.NotNil(t, task.StartedAt)
	require.NotNil(t, task.FinishedAt)
	assert.False(t, task.FinishedAt.Before(*task.StartedAt))
}

func TestTaskQueue_TaskError(t *testing.T) {
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		return nil, errors.New("token endpoint unreachable")
	})
	q := startQueue(t, testConfig(), exec)

	submitted, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	require.NoError(t, err)

	task := waitForStatus(t, q, submitted.ID)
	assert.Equal(t, TaskStatusError, task.Status)
	assert.Equal(t, "token endpoint unreachable", task.Error)
	assert.Nil(t, task.Result)
}

func TestTaskQueue_PanicBecomesError(t *testing.T) {
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		panic("boom")
	})
	q := startQueue(t, testConfig(), exec)

	submitted, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionCallOrder})
	require.NoError(t, err)

	task := waitForStatus(t, q, submitted.ID)
	assert.Equal(t, TaskStatusError, task.Status)
	assert.Contains(t, task.Error, "boom")
}

func TestTaskQueue_TaskTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeout = 20 * time.Millisecond
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	q := startQueue(t, cfg, exec)

	submitted, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionCallOrder})
	require.NoError(t, err)

	task := waitForStatus(t, q, submitted.ID)
	assert.Equal(t, TaskStatusError, task.Status)
	assert.Contains(t, task.Error, context.DeadlineExceeded.Error())
}

func TestTaskQueue_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1

	release := make(chan struct{})
	var started atomic.Int32
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		started.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})
	q := startQueue(t, cfg, exec)
	defer close(release)

	_, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err = q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	require.NoError(t, err)

	_, err = q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, q.List(0), 2)
}

func TestTaskQueue_GetUnknown(t *testing.T) {
	q, err := NewTaskQueue(testConfig(), nil, newTestLogger())
	require.NoError(t, err)

	_, err = q.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskQueue_ListNewestFirst(t *testing.T) {
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		return nil, nil
	})
	q := startQueue(t, testConfig(), exec)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		task, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	all := q.List(0)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited := q.List(2)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[2], limited[0].ID)
}

func TestTaskQueue_EvictsOldestFinished(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetainedTasks = 2
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		return "ok", nil
	})
	q := startQueue(t, cfg, exec)

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		task, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
		require.NoError(t, err)
		waitForStatus(t, q, task.ID)
		ids = append(ids, task.ID)
	}

	require.Eventually(t, func() bool { return len(q.List(0)) == 2 }, time.Second, 5*time.Millisecond)

	_, err := q.Get(ids[0])
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = q.Get(ids[1])
	assert.ErrorIs(t, err, ErrTaskNotFound)

	latest, err := q.Get(ids[3])
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFinished, latest.Status)
}

func TestTaskQueue_StartStopIdempotent(t *testing.T) {
	q, err := NewTaskQueue(testConfig(), nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Stop(ctx))
	require.NoError(t, q.Stop(ctx))

	_, err = q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestTaskQueue_WithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	exec := TaskExecutorFunc(func(ctx context.Context, req integration.TriggerRequest) (any, error) {
		return nil, nil
	})
	q, err := NewTaskQueue(testConfig(), exec, newTestLogger(), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	defer func() { _ = q.Stop(context.Background()) }()

	task, err := q.Submit(integration.TriggerRequest{Action: integration.TriggerActionGetToken})
	require.NoError(t, err)
	assert.Equal(t, fixed, task.CreatedAt)
}
