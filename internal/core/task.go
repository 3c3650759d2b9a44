package core

// Task is a single todo entry.
// ID is positional: it is renumbered whenever an earlier task is deleted,
// so it must not be kept as a long-lived reference.
type Task struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func NewTask(id int, title string) *Task {
	return &Task{ID: id, Title: title}
}

func (t *Task) CloneTask() *Task {
	if t == nil {
		return nil
	}
	ct := *t
	return &ct
}

// CloneTasks returns deep copies, never nil.
func CloneTasks(tasks []*Task) []*Task {
	res := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		res = append(res, t.CloneTask())
	}
	return res
}

// NextID returns max(id)+1, or 1 for an empty list.
func NextID(tasks []*Task) int {
	maxID := 0
	for _, t := range tasks {
		if t != nil && t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

// Renumber rewrites ids to 1..N keeping the current order.
func Renumber(tasks []*Task) {
	for i, t := range tasks {
		t.ID = i + 1
	}
}

// Unfinished filters out done tasks, order is kept.
func Unfinished(tasks []*Task) []*Task {
	res := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && !t.Done {
			res = append(res, t)
		}
	}
	return res
}
