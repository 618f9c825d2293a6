package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"converto/internal/logging"
	"converto/internal/media"
	"converto/internal/probe"
	"converto/internal/scratch"
	"converto/internal/services"
	"converto/internal/sources"
	"converto/internal/strategy"
	"converto/internal/transform"
)

// ToolRunner executes one tool invocation.
type ToolRunner interface {
	Run(ctx context.Context, inv transform.Invocation) error
}

// Localizer makes a source location readable on disk.
type Localizer interface {
	Localize(ctx context.Context, raw string, destDir string) (sources.Local, error)
	Size(raw string) int64
}

// Verifier checks a produced artifact beyond its size.
type Verifier interface {
	Verify(ctx context.Context, path, format string) (probe.Report, error)
}

// Batch is one accepted request's work.
type Batch struct {
	Sources []string
	// Strategies holds one resolved strategy per normalized input format.
	Strategies map[string]strategy.Strategy
	Timeout    time.Duration
	Session    *scratch.Session
}

// Option configures the engine.
type Option func(*Engine)

// WithVerifier enables output verification.
func WithVerifier(v Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logging.NewComponentLogger(logger, "engine")
		}
	}
}

// Engine executes batches.
type Engine struct {
	workers  int
	runner   ToolRunner
	sources  Localizer
	verifier Verifier
	logger   *slog.Logger
}

// DefaultWorkers returns max(1, NumCPU-1).
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// New constructs an engine. workers <= 0 selects DefaultWorkers.
func New(workers int, runner ToolRunner, localizer Localizer, opts ...Option) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	e := &Engine{
		workers: workers,
		runner:  runner,
		sources: localizer,
		logger:  logging.NewComponentLogger(nil, "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers reports the pool size.
func (e *Engine) Workers() int { return e.workers }

// Run processes every source and returns exactly one outcome per source.
func (e *Engine) Run(ctx context.Context, batch Batch) []Outcome {
	if len(batch.Sources) == 0 {
		return nil
	}
	if len(batch.Sources) == 1 {
		return []Outcome{e.runItem(ctx, batch, 0)}
	}

	results := make(chan Outcome, len(batch.Sources))
	p := newPool(min(e.workers, len(batch.Sources)))
	for idx := range batch.Sources {
		p.submit(func() {
			results <- e.runItem(ctx, batch, idx)
		})
	}
	p.wait()
	close(results)

	outcomes := make([]Outcome, 0, len(batch.Sources))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (e *Engine) runItem(ctx context.Context, batch Batch, index int) (outcome Outcome) {
	raw := batch.Sources[index]
	ctx = services.WithItemIndex(ctx, index)
	logger := logging.WithContext(ctx, e.logger)
	start := time.Now()

	inputFormat := media.FormatOf(raw)
	outcome = Outcome{
		Index:       index,
		Source:      raw,
		SourceName:  sourceName(raw),
		InputFormat: inputFormat,
	}
	strat, ok := batch.Strategies[inputFormat]
	if ok {
		outcome.OutputFormat = strat.OutputFormat
	}

	var item scratch.Item
	defer func() {
		if r := recover(); r != nil {
			outcome = e.fail(batch, item, outcome, start, fmt.Errorf("item panicked: %v", r))
		}
		if outcome.Success {
			logger.Info("item transformed",
				logging.String(logging.FieldSource, raw),
				logging.String("output_format", outcome.OutputFormat),
				logging.Int64("output_bytes", outcome.OutputSize),
				logging.Duration("elapsed", outcome.Elapsed),
				logging.String(logging.FieldEventType, "item_succeeded"),
			)
			return
		}
		logging.WarnWithContext(logger, "item failed", "item_failed",
			logging.String(logging.FieldSource, raw),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, hintFor(outcome.Err)),
			logging.String(logging.FieldImpact, "item excluded from the response"),
		)
	}()

	if !ok {
		return e.fail(batch, item, outcome, start, services.Wrap(services.ErrValidation, "engine", "strategy", "no strategy for input format "+inputFormat, nil))
	}

	var err error
	item, err = batch.Session.Item(index, outcome.SourceName, strat.OutputFormat)
	if err != nil {
		return e.fail(batch, item, outcome, start, err)
	}

	// One deadline covers download, tool run and verification.
	if batch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batch.Timeout)
		defer cancel()
	}

	local, err := e.sources.Localize(ctx, raw, item.SourceDir)
	if err != nil {
		return e.fail(batch, item, outcome, start, deadlineError(ctx, "localize", batch.Timeout, err))
	}
	outcome.OriginalSize = local.Size

	err = e.runner.Run(ctx, transform.Invocation{
		Strategy: strat,
		Input:    local.Path,
		Output:   item.Output,
		OutDir:   item.Dir,
		WorkDir:  item.WorkDir,
		Timeout:  batch.Timeout,
	})
	if err != nil {
		return e.fail(batch, item, outcome, start, err)
	}

	size, err := outputSize(item.Output)
	if err != nil {
		return e.fail(batch, item, outcome, start, err)
	}

	if e.verifier != nil {
		report, err := e.verifier.Verify(ctx, item.Output, strat.OutputFormat)
		if err != nil {
			return e.fail(batch, item, outcome, start, deadlineError(ctx, "verify output", batch.Timeout, err))
		}
		outcome.Width, outcome.Height = report.Width, report.Height
	}

	outcome.Output = item.Output
	outcome.OutputSize = size
	outcome.Success = true
	outcome.Elapsed = time.Since(start)
	return outcome
}

// fail discards any partial output and returns a failed outcome carrying the
// source's metadata only.
func (e *Engine) fail(batch Batch, item scratch.Item, outcome Outcome, start time.Time, err error) Outcome {
	if item.Output != "" && batch.Session != nil {
		batch.Session.Discard(item.Output)
	}
	if outcome.OriginalSize == 0 {
		outcome.OriginalSize = e.sources.Size(outcome.Source)
	}
	outcome.Output = ""
	outcome.OutputSize = 0
	outcome.Success = false
	outcome.Elapsed = time.Since(start)
	outcome.Err = err
	return outcome
}

// deadlineError marks err as a timeout when the item deadline expired.
func deadlineError(ctx context.Context, op string, timeout time.Duration, err error) error {
	if errors.Is(err, services.ErrTimeout) || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrTimeout, "engine", op, fmt.Sprintf("exceeded %s", timeout), err)
}

func outputSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "engine", "verify output", "tool produced no output", err)
	}
	if info.Size() == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "engine", "verify output", "tool produced an empty output", nil)
	}
	return info.Size(), nil
}

func sourceName(raw string) string {
	if loc, err := sources.Parse(raw); err == nil {
		return loc.Name()
	}
	return raw
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "raise the category timeout or split the input"
	case errors.Is(err, services.ErrNotFound):
		return "check that the source path or object exists"
	case errors.Is(err, services.ErrConfiguration):
		return "check tool and s3 settings in config.toml"
	case errors.Is(err, services.ErrValidation):
		return "check that the source is a non-empty file of the expected format"
	default:
		return "run converto deps and inspect the tool output in debug logs"
	}
}
