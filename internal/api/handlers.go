package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Licron11/TaskList-Project/internal/core"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type taskService interface {
	CreateTask(ctx context.Context, title string) (*core.Task, error)
	CompleteTask(ctx context.Context, id int) (*core.Task, error)
	DeleteTask(ctx context.Context, id int) error
	ListTasks(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error)
}

type handler struct {
	tasks  taskService
	logger *zap.Logger
}

const statusUnfinished = "unfinished"

// Shared validation errors; handlers copy them with WithOper.
var (
	errInvalidID   = core.NewTaskValidationError("invalid id", nil, "")
	errInvalidJSON = core.NewTaskValidationError("invalid JSON", nil, "")
	errTitleField  = core.NewTaskValidationError("title is required and must be a string", nil, "")
	errDoneField   = core.NewTaskValidationError("done is required and must be a boolean", nil, "")
	errReopen      = core.NewTaskValidationError("task can only be marked as done", nil, "")
)

func NewHandler(ts taskService, logger *zap.Logger) *handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handler{tasks: ts, logger: logger}
}

func (h *handler) listTasks(c *gin.Context) {
	status := c.QueryArray("status")
	unfinished := len(status) == 1 && status[0] == statusUnfinished

	tasks, err := h.tasks.ListTasks(c.Request.Context(), unfinished)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTasksListResponse(tasks))
}

func (h *handler) createTask(c *gin.Context) {
	const op = "api.handler.createTask"

	fields, err := h.bindJSON(c, op)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	title, ok := stringField(fields, "title")
	if !ok {
		h.errorResponse(c, errTitleField.WithOper(op))
		return
	}

	t, err := h.tasks.CreateTask(c.Request.Context(), title)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	SetTaskID(c, t.ID)
	c.JSON(http.StatusCreated, NewTaskResponse(t))
}

// completeTask only supports done=true; tasks cannot be reopened.
func (h *handler) completeTask(c *gin.Context) {
	const op = "api.handler.completeTask"

	id, err := parseTaskID(c, op)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	SetTaskID(c, id)

	fields, err := h.bindJSON(c, op)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	done, ok := boolField(fields, "done")
	if !ok {
		h.errorResponse(c, errDoneField.WithOper(op))
		return
	}
	if !done {
		h.errorResponse(c, errReopen.WithOper(op))
		return
	}

	t, err := h.tasks.CompleteTask(c.Request.Context(), id)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTaskResponse(t))
}

func (h *handler) deleteTask(c *gin.Context) {
	const op = "api.handler.deleteTask"

	id, err := parseTaskID(c, op)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	SetTaskID(c, id)

	if err := h.tasks.DeleteTask(c.Request.Context(), id); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusNoContent)
}

func (h *handler) notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
}

// bindJSON only rejects malformed JSON. A valid body that is not an object
// yields no fields, so the field checks report it.
func (h *handler) bindJSON(c *gin.Context, op string) (map[string]json.RawMessage, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, core.NewTaskValidationError("cant read body", err, op)
	}
	if !json.Valid(raw) {
		return nil, errInvalidJSON.WithOper(op)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string]json.RawMessage{}, nil
	}
	return fields, nil
}

// stringField reports false when name is missing, null or not a string.
func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	var v *string
	if err := json.Unmarshal(fields[name], &v); err != nil || v == nil {
		return "", false
	}
	return *v, true
}

// boolField reports false when name is missing, null or not a boolean.
func boolField(fields map[string]json.RawMessage, name string) (bool, bool) {
	var v *bool
	if err := json.Unmarshal(fields[name], &v); err != nil || v == nil {
		return false, false
	}
	return *v, true
}

// parseTaskID accepts only plain positive decimal ids.
func parseTaskID(c *gin.Context, op string) (int, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, errInvalidID.WithOper(op)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, errInvalidID.WithOper(op)
		}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errInvalidID.WithOper(op)
	}
	return id, nil
}

func (h *handler) errorResponse(c *gin.Context, err error) {
	if err == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
		})
		return
	}
	c.Error(err) //nolint:errcheck

	if appErr, ok := core.AsAppError(err); ok {
		s := appErr.HTTPStatus()
		fields := []zap.Field{
			zap.String("reqid", GetRequestID(c)),
			zap.String("op", appErr.Operation),
			zap.String("error", err.Error()),
		}
		if tid, ok := GetTaskID(c); ok {
			fields = append(fields, zap.Int("task_id", tid))
		}
		if len(appErr.Meta) > 0 {
			fields = append(fields, zap.Any("meta", appErr.Meta))
		}
		if s >= http.StatusInternalServerError {
			h.logger.Error("handler error", fields...)
		} else {
			h.logger.Warn("handler error", fields...)
		}
		c.AbortWithStatusJSON(s, ErrorResponse{Error: appErr.PublicMessage()})
		return
	}

	h.logger.Error("handler unknown error",
		zap.String("reqid", GetRequestID(c)),
		zap.String("error", err.Error()),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
	})
}
