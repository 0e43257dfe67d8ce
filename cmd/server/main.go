package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ganot/sitewatch/internal/autosave"
	"github.com/ganot/sitewatch/internal/config"
	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/engine"
	"github.com/ganot/sitewatch/internal/mcp"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/ganot/sitewatch/internal/sqlite"
	"github.com/ganot/sitewatch/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.MCP.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("SITEWATCH_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("preparing database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := ensureSchema(db); err != nil {
		return err
	}

	websiteRepo := sqlite.NewWebsiteRepository(db)
	statusRepo := sqlite.NewStatusRepository(db)
	runRepo := sqlite.NewRunRepository(db)

	alerts := notify.NewCenter(notify.DefaultTTL)
	store := website.NewStore(websiteRepo, statusRepo, alerts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := store.Load(ctx); err != nil {
		// An empty or unreachable store is not fatal; the registry starts
		// empty and the first save creates it.
		logger.Warn("initial registry load failed", "error", err)
	}

	saver := autosave.New(func(ctx context.Context) error {
		return websiteRepo.SaveAll(ctx, store.PersistableSnapshot())
	}, cfg.Autosave.Delay, nil, alerts, logger)
	store.OnChange(saver.Trigger)
	defer saver.Close()

	engineClient := engine.NewClient(cfg.Engine.URL, cfg.Engine.Timeout, logger)

	coord := capture.NewCoordinator(capture.Config{
		Registry: store,
		Engine:   engineClient,
		Source:   engineClient,
		Runs:     runRepo,
		Alerts:   alerts,
		Logger:   logger,
		Grace:    cfg.Capture.Grace,
	})
	if err := coord.Start(ctx); err != nil {
		// The engine may come up later; commands still work, only live
		// progress is missing until restart.
		logger.Warn("progress stream unavailable", "error", err)
	} else {
		defer coord.Close()
	}

	group, ctx := errgroup.WithContext(ctx)

	router := transport.NewServer(store, coord, saver, alerts, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	group.Go(func() error {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Capture.Schedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.Capture.Schedule, func() {
			checked, failed, err := coord.CheckAll(ctx)
			if err != nil {
				logger.Error("scheduled check aborted", "error", err)
				return
			}
			logger.Info("scheduled check finished", "checked", checked, "failed", failed)
		})
		if err != nil {
			return fmt.Errorf("invalid check schedule %q: %w", cfg.Capture.Schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("scheduled checks enabled", "schedule", cfg.Capture.Schedule)
	}

	if cfg.MCP.Mode == "stdio" {
		mcpServer := mcp.NewServer(mcp.Config{
			Store:       store,
			Coordinator: coord,
			Alerts:      alerts,
			Logger:      logger,
		})
		group.Go(func() error {
			logger.Info("starting stdio tool transport")
			return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
		})
	}

	err = group.Wait()

	// Persist whatever the debounce window was still holding.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := saver.Flush(flushCtx); flushErr != nil {
		logger.Error("final save failed", "error", flushErr)
	}

	return err
}

// ensureSchema applies the schema on a fresh database and is a no-op when
// the tables already exist.
func ensureSchema(db *sqlite.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='websites'").Scan(&count)
	if err != nil {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file}
	if err := writer.truncateIfNeeded(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	buf := make([]byte, keepLogSizeBytes)
	if _, err := w.file.Seek(size-keepLogSizeBytes, io.SeekStart); err != nil {
		return err
	}
	n, err := w.file.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
