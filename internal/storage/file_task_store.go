package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/Licron11/TaskList-Project/internal/core"
	"github.com/Licron11/TaskList-Project/internal/storage/snapshot"
)

var ErrStoreClosed = errors.New("store: closed")

// FileTaskStore keeps tasks in memory and rewrites the whole
// backing file after every change.
type FileTaskStore struct {
	tasks []*core.Task
	path  string

	loaded snapshot.LoadResult
	closed bool
	mu     sync.RWMutex
}

var _ TaskStore = (*FileTaskStore)(nil)

// NewFileTaskStore loads path. A missing or broken file gives an empty store;
// see LoadResult for which of the two happened.
func NewFileTaskStore(ctx context.Context, path string) (*FileTaskStore, error) {
	res, err := snapshot.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return &FileTaskStore{
		tasks:  res.Tasks,
		path:   path,
		loaded: *res,
	}, nil
}

// LoadResult reports how the backing file looked at construction.
// The returned Tasks are the ones loaded then, not the current list.
func (st *FileTaskStore) LoadResult() snapshot.LoadResult {
	st.mu.RLock()
	defer st.mu.RUnlock()
	res := st.loaded
	res.Tasks = core.CloneTasks(res.Tasks)
	return res
}

func (st *FileTaskStore) Path() string {
	return st.path
}

// Close stops further mutations. Nothing is buffered, so there is nothing to flush.
func (st *FileTaskStore) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	return nil
}

func (st *FileTaskStore) AddTask(ctx context.Context, title string) (*core.Task, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil, ErrStoreClosed
	}

	t := core.NewTask(core.NextID(st.tasks), title)
	next := append(core.CloneTasks(st.tasks), t)
	if err := st.save(ctx, next); err != nil {
		return nil, err
	}
	return t.CloneTask(), nil
}

func (st *FileTaskStore) MarkDone(ctx context.Context, id int) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return false, ErrStoreClosed
	}

	idx := st.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	next := core.CloneTasks(st.tasks)
	next[idx].Done = true
	if err := st.save(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (st *FileTaskStore) DeleteTask(ctx context.Context, id int) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return false, ErrStoreClosed
	}

	idx := st.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]*core.Task, 0, len(st.tasks)-1)
	for i, t := range st.tasks {
		if i == idx {
			continue
		}
		next = append(next, t.CloneTask())
	}
	core.Renumber(next)
	if err := st.save(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (st *FileTaskStore) GetTask(_ context.Context, id int) (*core.Task, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	idx := st.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return st.tasks[idx].CloneTask(), true
}

// GetAllTasks returns copies in id order.
func (st *FileTaskStore) GetAllTasks(_ context.Context) []*core.Task {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return core.CloneTasks(st.tasks)
}

func (st *FileTaskStore) GetUnfinishedTasks(_ context.Context) []*core.Task {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return core.CloneTasks(core.Unfinished(st.tasks))
}

// save writes next and, only if that worked, makes it the current list.
// Callers hold st.mu.
func (st *FileTaskStore) save(ctx context.Context, next []*core.Task) error {
	if err := snapshot.Write(ctx, st.path, next); err != nil {
		return err
	}
	st.tasks = next
	return nil
}

// indexOf returns the position of the first task with id, or -1.
func (st *FileTaskStore) indexOf(id int) int {
	for i, t := range st.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
