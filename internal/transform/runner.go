package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"converto/internal/config"
	"converto/internal/logging"
	"converto/internal/services"
	"converto/internal/strategy"
)

const outputTailLines = 12

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger attaches a logger; tool output is logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner invokes resolved strategies against concrete files.
type Runner struct {
	tools  config.Tools
	exec   Executor
	logger *slog.Logger
}

// Invocation describes one item's tool run.
type Invocation struct {
	Strategy strategy.Strategy
	Input    string
	Output   string
	OutDir   string
	WorkDir  string
	Timeout  time.Duration
}

// NewRunner constructs a runner that resolves tool names through tools.
func NewRunner(tools config.Tools, opts ...Option) *Runner {
	r := &Runner{tools: tools, exec: commandExecutor{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the configured executable for a tool.
func (r *Runner) Binary(tool strategy.Tool) string {
	switch tool {
	case strategy.ToolFFmpeg:
		return r.tools.FFmpeg
	case strategy.ToolMagick:
		return r.tools.Magick
	case strategy.ToolSoffice:
		return r.tools.Soffice
	case strategy.ToolRembg:
		return r.tools.Rembg
	default:
		return string(tool)
	}
}

// Run executes one invocation. A deadline expiry is reported with
// services.ErrTimeout, any other failure with services.ErrExternalTool.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	binary := r.Binary(inv.Strategy.Tool)
	if strings.TrimSpace(binary) == "" {
		return services.Wrap(services.ErrConfiguration, "transform", "resolve binary", fmt.Sprintf("no binary configured for %s", inv.Strategy.Tool), nil)
	}
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	args := inv.Strategy.Command(inv.Input, inv.Output, inv.OutDir, inv.WorkDir)
	tail := newLineTail(outputTailLines)
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("transform starting",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
		logging.Duration("timeout", inv.Timeout),
	)

	err := r.exec.Run(runCtx, binary, args, inv.WorkDir, func(line string) {
		tail.add(line)
		logger.Debug("transform output", logging.String("tool", string(inv.Strategy.Tool)), logging.String("line", line))
	})
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "transform", binary, fmt.Sprintf("exceeded %s", inv.Timeout), err)
	}
	return services.Wrap(services.ErrExternalTool, "transform", binary, tail.String(), err)
}

type lineTail struct {
	limit int
	lines []string
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, " | ")
}
