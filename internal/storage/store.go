package storage

import (
	"context"

	"github.com/Licron11/TaskList-Project/internal/core"
)

// TaskStore owns the task list and keeps the backing file in sync with it.
// Implementations MUST be safe for concurrent use. Every mutation is either
// fully applied and persisted or not applied at all.
//
// Ids are positions: DeleteTask renumbers the remaining tasks to 1..N.
type TaskStore interface {
	// AddTask appends a task with id max+1 and persists the list.
	AddTask(ctx context.Context, title string) (*core.Task, error)
	// MarkDone sets done on the task with id. It reports false, and writes
	// nothing, when there is no such task.
	MarkDone(ctx context.Context, id int) (bool, error)
	// DeleteTask removes the task with id and renumbers the rest.
	// It reports false, and writes nothing, when there is no such task.
	DeleteTask(ctx context.Context, id int) (bool, error)

	GetTask(ctx context.Context, id int) (*core.Task, bool)
	GetAllTasks(ctx context.Context) []*core.Task
	GetUnfinishedTasks(ctx context.Context) []*core.Task

	Close() error
}
