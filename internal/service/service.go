package service

import (
	"context"
	"strconv"

	"github.com/Licron11/TaskList-Project/internal/core"
	"github.com/Licron11/TaskList-Project/internal/storage"
	"go.uber.org/zap"
)

// TaskService turns store results into AppErrors the api layer can render.
type TaskService struct {
	store  storage.TaskStore
	logger *zap.Logger
}

func NewTaskService(store storage.TaskStore, logger *zap.Logger) (*TaskService, error) {
	const op = "service.NewTaskService"
	if store == nil {
		return nil, core.NewAppErrorBuilder(core.ErrorCodeInternal).
			Message("task store required").
			SafeToShow(false).
			Oper(op).
			Build()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{store: store, logger: logger}, nil
}

func (ts *TaskService) CreateTask(ctx context.Context, title string) (*core.Task, error) {
	const op = "service.TaskService.CreateTask"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	t, err := ts.store.AddTask(ctx, title)
	if err != nil {
		ts.logger.Error("cant create task", zap.String("title", title), zap.Error(err))
		return nil, core.NewTaskInternalError("failed to create task", err, op).
			WithMeta("title", title)
	}
	ts.logger.Info("task created", zap.Int("task_id", t.ID), zap.String("title", t.Title))
	return t, nil
}

// CompleteTask marks the task done and returns its new state.
func (ts *TaskService) CompleteTask(ctx context.Context, id int) (*core.Task, error) {
	const op = "service.TaskService.CompleteTask"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}

	ok, err := ts.store.MarkDone(ctx, id)
	if err != nil {
		ts.logger.Error("cant complete task", zap.Int("task_id", id), zap.Error(err))
		return nil, storeError(op, "failed to update task", err, id)
	}
	if !ok {
		return nil, core.NewTaskNotFoundError(id, op)
	}
	// a concurrent delete may renumber between the two calls
	t, ok := ts.store.GetTask(ctx, id)
	if !ok {
		return nil, core.NewTaskNotFoundError(id, op)
	}
	ts.logger.Info("task completed", zap.Int("task_id", id))
	return t, nil
}

// DeleteTask removes the task; ids after it shift down by one.
func (ts *TaskService) DeleteTask(ctx context.Context, id int) error {
	const op = "service.TaskService.DeleteTask"

	if err := ctx.Err(); err != nil {
		return internalError(op, "ctx error", err)
	}

	ok, err := ts.store.DeleteTask(ctx, id)
	if err != nil {
		ts.logger.Error("cant delete task", zap.Int("task_id", id), zap.Error(err))
		return storeError(op, "failed to delete task", err, id)
	}
	if !ok {
		return core.NewTaskNotFoundError(id, op)
	}
	ts.logger.Info("task deleted", zap.Int("task_id", id))
	return nil
}

// ListTasks returns tasks in id order, only not done ones if unfinishedOnly.
func (ts *TaskService) ListTasks(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error) {
	const op = "service.TaskService.ListTasks"

	if err := ctx.Err(); err != nil {
		return nil, internalError(op, "ctx error", err)
	}
	if unfinishedOnly {
		return ts.store.GetUnfinishedTasks(ctx), nil
	}
	return ts.store.GetAllTasks(ctx), nil
}

// storeError reports a failed write of the task with id.
func storeError(op, msg string, err error, id int) error {
	return core.NewTaskInternalError(msg, err, op).
		WithMeta("task_id", strconv.Itoa(id))
}

func internalError(op, msg string, err error) error {
	return core.NewAppErrorBuilder(core.ErrorCodeInternal).
		Message(msg).
		Err(err).
		SafeToShow(false).
		Oper(op).
		Build()
}
