package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"converto/internal/config"
	"converto/internal/deps"
	"converto/internal/logging"
	"converto/internal/pipeline"
	"converto/internal/request"
)

// Executor runs one transformation request.
type Executor interface {
	Execute(ctx context.Context, req request.Request) (*pipeline.Result, error)
}

// Daemon owns the HTTP server lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	history  HistoryReader
	executor Executor

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool          `json:"running"`
	PID           int           `json:"pid"`
	Bind          string        `json:"bind"`
	Workers       int           `json:"workers"`
	HistoryDBPath string        `json:"history_db_path"`
	LockFilePath  string        `json:"lock_file_path"`
	Dependencies  []deps.Status `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, history HistoryReader, executor Executor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || history == nil || executor == nil {
		return nil, errors.New("daemon requires config, history, and executor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "converto.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		history:  history,
		executor: executor,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another converto daemon instance is already running")
	}

	logging.PruneLogs(d.logger, d.cfg.Paths.LogDir, d.cfg.Logging.RetentionDays, time.Now())

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("converto daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.address()),
	)
	return nil
}

// Stop shuts down the HTTP server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("converto daemon stopped")
}

// Address returns the bound listener address once started.
func (d *Daemon) Address() string {
	return d.server.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Bind:          d.server.address(),
		Workers:       d.cfg.WorkerCount(),
		HistoryDBPath: d.cfg.HistoryDBPath(),
		LockFilePath:  d.lockPath,
		Dependencies:  deps.Check(d.cfg.Tools),
	}
}
