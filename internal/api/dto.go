package api

import "github.com/Licron11/TaskList-Project/internal/core"

type TaskResponse struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewTaskResponse(task *core.Task) *TaskResponse {
	if task == nil {
		return nil
	}
	return &TaskResponse{ID: task.ID, Title: task.Title, Done: task.Done}
}

// NewTasksListResponse never returns nil so an empty list encodes as [].
func NewTasksListResponse(tasks []*core.Task) []*TaskResponse {
	resp := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		resp = append(resp, NewTaskResponse(t))
	}
	return resp
}
