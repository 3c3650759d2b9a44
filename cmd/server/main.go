package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Licron11/TaskList-Project/internal/api"
	"github.com/Licron11/TaskList-Project/internal/config"
	"github.com/Licron11/TaskList-Project/internal/service"
	"github.com/Licron11/TaskList-Project/internal/storage"
	"github.com/Licron11/TaskList-Project/internal/storage/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configAppName = "app"
	configExt     = "env"
	configDir     = "config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgDir string

	cmd := &cobra.Command{
		Use:          "tasklist-server",
		Short:        "HTTP service for a small persisted task list",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAppConfig(configAppName, configExt, cmd.Flags(), cfgDir)
			if err != nil {
				return fmt.Errorf("cant read config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&cfgDir, "config-dir", configDir, "directory holding "+configAppName+"."+configExt)
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	zapLogger, err := newLogger(cfg.LogLevel)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cant init logger: %v\n", err)
		return err
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	logger := zapLogger.Named("server")
	logger.Info("running server", zap.Int("pid", os.Getpid()))

	store, err := storage.NewFileTaskStore(ctx, cfg.TasksFile)
	if err != nil {
		logger.Error("cant open task store", zap.Error(err), zap.String("file", cfg.TasksFile))
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("cant close store", zap.Error(err))
		}
	}()
	logLoad(logger, store)

	svc, err := service.NewTaskService(store, zapLogger.Named("service"))
	if err != nil {
		logger.Error("cant create task service", zap.Error(err))
		return err
	}

	srv, err := api.NewServer(&api.ServerOptions{
		TaskService: svc,
		Logger:      zapLogger.Named("api"),
		Addr:        cfg.ServerAddr,
		GinMode:     cfg.GinMode,
	})
	if err != nil {
		logger.Error("cant create api server", zap.Error(err))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", zap.Error(runErr))
	}

	offCtx, offCanc := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer offCanc()
	if err := srv.Shutdown(offCtx); err != nil {
		logger.Error("cant shutdown server", zap.Error(err))
	}
	logger.Info("shutdown done")
	return runErr
}

// logLoad reports how the backing file was found. A broken file is not fatal:
// the store starts empty and the next write replaces it.
func logLoad(logger *zap.Logger, store *storage.FileTaskStore) {
	res := store.LoadResult()
	fields := []zap.Field{
		zap.String("file", store.Path()),
		zap.Stringer("outcome", res.Outcome),
		zap.Int("tasks", len(res.Tasks)),
	}
	if res.Outcome == snapshot.LoadFailed {
		logger.Warn("tasks file unreadable, starting empty", append(fields, zap.Error(res.Err))...)
		return
	}
	logger.Info("tasks loaded", fields...)
}
