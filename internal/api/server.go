package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ErrNoTaskService = errors.New("task service is required")

const defaultReadHeaderTimeout = 10 * time.Second

type Server struct {
	router *gin.Engine

	httpSrv *http.Server
}

type ServerOptions struct {
	TaskService taskService
	Logger      *zap.Logger
	Addr        string
	// GinMode is passed to gin.SetMode when set.
	GinMode string
}

func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.TaskService == nil {
		return nil, ErrNoTaskService
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	router := gin.New()
	// /tasks/ must reach the id handlers and answer 400, not redirect
	router.RedirectTrailingSlash = false
	router.Use(
		RecoveryMiddleware(opts.Logger),
		RequestIDMiddleware(),
		LoggingMiddleware(opts.Logger),
	)

	h := NewHandler(opts.TaskService, opts.Logger)
	setupRouter(router, h)

	return &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
		}}, nil
}

func (s *Server) Run() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func setupRouter(router *gin.Engine, h *handler) {
	group := router.Group("/")
	group.GET("/tasks", h.listTasks)
	group.POST("/tasks", h.createTask)

	// the id-less forms exist so a missing id is a 400, not a 404
	for _, p := range []string{"/tasks", "/tasks/", "/tasks/:id"} {
		group.PATCH(p, h.completeTask)
		group.DELETE(p, h.deleteTask)
	}

	router.NoRoute(h.notFound)
	router.NoMethod(h.notFound)
}
