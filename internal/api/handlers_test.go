package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Licron11/TaskList-Project/internal/core"
	"github.com/Licron11/TaskList-Project/internal/service"
	"github.com/Licron11/TaskList-Project/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockTaskService struct {
	CreateTaskF   func(ctx context.Context, title string) (*core.Task, error)
	CompleteTaskF func(ctx context.Context, id int) (*core.Task, error)
	DeleteTaskF   func(ctx context.Context, id int) error
	ListTasksF    func(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error)
}

func (m *mockTaskService) CreateTask(ctx context.Context, title string) (*core.Task, error) {
	return m.CreateTaskF(ctx, title)
}
func (m *mockTaskService) CompleteTask(ctx context.Context, id int) (*core.Task, error) {
	return m.CompleteTaskF(ctx, id)
}
func (m *mockTaskService) DeleteTask(ctx context.Context, id int) error {
	return m.DeleteTaskF(ctx, id)
}
func (m *mockTaskService) ListTasks(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error) {
	return m.ListTasksF(ctx, unfinishedOnly)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T, ts taskService) http.Handler {
	t.Helper()
	srv, err := NewServer(&ServerOptions{TaskService: ts})
	require.NoError(t, err)
	return srv.Router()
}

// newStoreRouter wires the real service and a file store in a temp dir.
func newStoreRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewFileTaskStore(context.Background(),
		filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc, err := service.NewTaskService(store, nil)
	require.NoError(t, err)
	return newTestRouter(t, svc)
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) TaskResponse {
	t.Helper()
	resp := TaskResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []TaskResponse {
	t.Helper()
	resp := []TaskResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1, "error body has only the error key: %v", body)
	require.Contains(t, body["error"], msg)
}

func TestCreateTaskAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)

	rec := doRequest(h, http.MethodPost, "/tasks", `{"title":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	require.JSONEq(t, `{"id":1,"title":"Buy milk","done":false}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(h, http.MethodPost, "/tasks", `{"title":"Second","extra":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 2, decodeTask(t, rec).ID)
}

func TestCreateTaskValidationAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)

	testCases := []struct {
		name string
		body string
		msg  string
	}{
		{name: "malformed", body: `{"title":`, msg: "invalid JSON"},
		{name: "empty body", body: "", msg: "invalid JSON"},
		{name: "missing title", body: `{"name":"x"}`, msg: "title"},
		{name: "number title", body: `{"title":5}`, msg: "title"},
		{name: "null title", body: `{"title":null}`, msg: "title"},
		{name: "array body", body: `["title"]`, msg: "title"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/tasks", tc.body)
			requireError(t, rec, http.StatusBadRequest, tc.msg)
		})
	}

	rec := doRequest(h, http.MethodGet, "/tasks", "")
	require.Empty(t, decodeList(t, rec), "rejected requests must not create tasks")
}

func TestListTasksAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)

	rec := doRequest(h, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", rec.Body.String())

	for _, title := range []string{"one", "two"} {
		require.Equal(t, http.StatusCreated,
			doRequest(h, http.MethodPost, "/tasks", `{"title":"`+title+`"}`).Code)
	}
	rec = doRequest(h, http.MethodPatch, "/tasks/1", `{"done":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodGet, "/tasks?status=unfinished", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"id":2,"title":"two","done":false}]`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/tasks", "")
	require.Len(t, decodeList(t, rec), 2)

	// anything but exactly status=unfinished lists all
	for _, q := range []string{"?status=done", "?status=unfinished&status=unfinished", "?other=unfinished"} {
		rec = doRequest(h, http.MethodGet, "/tasks"+q, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decodeList(t, rec), 2, q)
	}
}

func TestCompleteTaskAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)
	require.Equal(t, http.StatusCreated,
		doRequest(h, http.MethodPost, "/tasks", `{"title":"Test task"}`).Code)

	rec := doRequest(h, http.MethodPatch, "/tasks/1", `{"done":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":1,"title":"Test task","done":true}`, rec.Body.String())

	testCases := []struct {
		name   string
		target string
		body   string
		status int
		msg    string
	}{
		{name: "done false", target: "/tasks/1", body: `{"done":false}`, status: http.StatusBadRequest, msg: "only be marked as done"},
		{name: "done string", target: "/tasks/1", body: `{"done":"true"}`, status: http.StatusBadRequest, msg: "boolean"},
		{name: "done missing", target: "/tasks/1", body: `{}`, status: http.StatusBadRequest, msg: "boolean"},
		{name: "done null", target: "/tasks/1", body: `{"done":null}`, status: http.StatusBadRequest, msg: "boolean"},
		{name: "array body", target: "/tasks/1", body: `[true]`, status: http.StatusBadRequest, msg: "boolean"},
		{name: "bad json", target: "/tasks/1", body: `{done:true}`, status: http.StatusBadRequest, msg: "invalid JSON"},
		{name: "non digit id", target: "/tasks/abc", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "signed id", target: "/tasks/+1", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "zero id", target: "/tasks/0", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "huge id", target: "/tasks/99999999999999999999999", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "missing id", target: "/tasks", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "trailing slash", target: "/tasks/", body: `{"done":true}`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "id checked before body", target: "/tasks/x", body: `{broken`, status: http.StatusBadRequest, msg: "invalid id"},
		{name: "absent id", target: "/tasks/999", body: `{"done":true}`, status: http.StatusNotFound, msg: "task 999 not found"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPatch, tc.target, tc.body)
			requireError(t, rec, tc.status, tc.msg)
		})
	}
}

func TestDeleteTaskAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)

	rec := doRequest(h, http.MethodDelete, "/tasks/999", "")
	requireError(t, rec, http.StatusNotFound, "not found")

	for _, title := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusCreated,
			doRequest(h, http.MethodPost, "/tasks", `{"title":"`+title+`"}`).Code)
	}
	rec = doRequest(h, http.MethodDelete, "/tasks/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = doRequest(h, http.MethodGet, "/tasks", "")
	require.JSONEq(t,
		`[{"id":1,"title":"b","done":false},{"id":2,"title":"c","done":false}]`,
		rec.Body.String())

	requireError(t, doRequest(h, http.MethodDelete, "/tasks", ""), http.StatusBadRequest, "invalid id")
	requireError(t, doRequest(h, http.MethodDelete, "/tasks/two", ""), http.StatusBadRequest, "invalid id")
}

func TestUnknownRoutesAPI(t *testing.T) {
	t.Parallel()
	h := newStoreRouter(t)

	testCases := []struct {
		method string
		target string
	}{
		{method: http.MethodGet, target: "/"},
		{method: http.MethodGet, target: "/tasks/1"},
		{method: http.MethodGet, target: "/tasks/"},
		{method: http.MethodPost, target: "/tasks/1"},
		{method: http.MethodPut, target: "/tasks/1"},
		{method: http.MethodPatch, target: "/other/1"},
		{method: http.MethodDelete, target: "/tasks/1/extra"},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := doRequest(h, tc.method, tc.target, `{"title":"x"}`)
			requireError(t, rec, http.StatusNotFound, "endpoint not found")
		})
	}
}

func TestInternalErrorAPI(t *testing.T) {
	t.Parallel()
	svc := &mockTaskService{
		CreateTaskF: func(ctx context.Context, title string) (*core.Task, error) {
			return nil, core.NewTaskInternalError("failed to create task", errors.New("disk full"), "test")
		},
		DeleteTaskF: func(ctx context.Context, id int) error {
			return errors.New("not an app error")
		},
		ListTasksF: func(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error) {
			panic("boom")
		},
	}
	h := newTestRouter(t, svc)

	rec := doRequest(h, http.MethodPost, "/tasks", `{"title":"x"}`)
	requireError(t, rec, http.StatusInternalServerError, "failed to create task: disk full")

	rec = doRequest(h, http.MethodDelete, "/tasks/1", "")
	requireError(t, rec, http.StatusInternalServerError, "internal server error")

	rec = doRequest(h, http.MethodGet, "/tasks", "")
	requireError(t, rec, http.StatusInternalServerError, "internal server error")
}

func TestHandlerPassesParsedValues(t *testing.T) {
	t.Parallel()
	var (
		gotTitle      string
		gotID         int
		gotUnfinished bool
	)
	svc := &mockTaskService{
		CreateTaskF: func(ctx context.Context, title string) (*core.Task, error) {
			gotTitle = title
			return core.NewTask(1, title), nil
		},
		CompleteTaskF: func(ctx context.Context, id int) (*core.Task, error) {
			gotID = id
			return &core.Task{ID: id, Title: "t", Done: true}, nil
		},
		ListTasksF: func(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error) {
			gotUnfinished = unfinishedOnly
			return nil, nil
		},
	}
	h := newTestRouter(t, svc)

	require.Equal(t, http.StatusCreated,
		doRequest(h, http.MethodPost, "/tasks", `{"title":"  spaced  "}`).Code)
	require.Equal(t, "  spaced  ", gotTitle)

	require.Equal(t, http.StatusOK,
		doRequest(h, http.MethodPatch, "/tasks/0042", `{"done":true}`).Code)
	require.Equal(t, 42, gotID)

	rec := doRequest(h, http.MethodGet, "/tasks?status=unfinished", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotUnfinished)
	require.Equal(t, "[]", rec.Body.String())
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(&ServerOptions{})
	require.ErrorIs(t, err, ErrNoTaskService)
}

func TestBodyFields(t *testing.T) {
	t.Parallel()
	fields := map[string]json.RawMessage{
		"title": json.RawMessage(`"Buy milk"`),
		"empty": json.RawMessage(`""`),
		"done":  json.RawMessage(`false`),
		"null":  json.RawMessage(`null`),
		"num":   json.RawMessage(`1`),
	}

	title, ok := stringField(fields, "title")
	require.True(t, ok)
	require.Equal(t, "Buy milk", title)

	title, ok = stringField(fields, "empty")
	require.True(t, ok)
	require.Empty(t, title)

	done, ok := boolField(fields, "done")
	require.True(t, ok)
	require.False(t, done)

	for _, name := range []string{"null", "num", "missing"} {
		_, ok = stringField(fields, name)
		require.False(t, ok, name)
		_, ok = boolField(fields, name)
		require.False(t, ok, name)
	}
	_, ok = boolField(fields, "title")
	require.False(t, ok)
}

func TestErrorResponseLogFields(t *testing.T) {
	t.Parallel()
	store, err := storage.NewFileTaskStore(context.Background(),
		filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc, err := service.NewTaskService(store, nil)
	require.NoError(t, err)

	obsCore, logs := observer.New(zapcore.DebugLevel)
	srv, err := NewServer(&ServerOptions{TaskService: svc, Logger: zap.New(obsCore)})
	require.NoError(t, err)
	h := srv.Router()

	rec := doRequest(h, http.MethodDelete, "/tasks/7", "")
	requireError(t, rec, http.StatusNotFound, "task 7 not found")

	rec = doRequest(h, http.MethodPatch, "/tasks/abc", `{"done":true}`)
	requireError(t, rec, http.StatusBadRequest, "invalid id")

	entries := logs.FilterMessage("handler error").All()
	require.Len(t, entries, 2)

	notFound := entries[0].ContextMap()
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "service.TaskService.DeleteTask", notFound["op"])
	require.Equal(t, map[string]string{"task_id": "7"}, notFound["meta"])
	require.EqualValues(t, 7, notFound["task_id"])

	invalid := entries[1].ContextMap()
	require.Equal(t, "api.handler.completeTask", invalid["op"])
	require.NotContains(t, invalid, "meta")

	// the shared error stays untouched by WithOper
	require.Empty(t, errInvalidID.Operation)
}

type ctxKey struct{}

func TestHandlerUsesRequestContext(t *testing.T) {
	t.Parallel()
	var got context.Context
	svc := &mockTaskService{
		ListTasksF: func(ctx context.Context, unfinishedOnly bool) ([]*core.Task, error) {
			got = ctx
			return nil, nil
		},
	}
	h := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "marker"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	require.Equal(t, "marker", got.Value(ctxKey{}))
	_, hasDeadline := got.Deadline()
	require.False(t, hasDeadline, "handlers add no deadline of their own")
}
