// Package pipeline composes validation, strategy resolution, execution,
// history recording, and aggregation for one request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"converto/internal/aggregate"
	"converto/internal/config"
	"converto/internal/engine"
	"converto/internal/history"
	"converto/internal/logging"
	"converto/internal/media"
	"converto/internal/request"
	"converto/internal/scratch"
	"converto/internal/services"
	"converto/internal/strategy"
)

// AllFailedError reports a well-formed batch in which no item succeeded.
type AllFailedError struct {
	Total int
	// Last is the failure reason of the last item, for diagnostics.
	Last error
}

func (e *AllFailedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("all %d items failed: %v", e.Total, e.Last)
	}
	return fmt.Sprintf("all %d items failed", e.Total)
}

// Unwrap exposes aggregate.ErrAllFailed.
func (e *AllFailedError) Unwrap() error { return aggregate.ErrAllFailed }

// Runner executes a resolved batch.
type Runner interface {
	Run(ctx context.Context, batch engine.Batch) []engine.Outcome
}

// Recorder stores one history record per outcome.
type Recorder interface {
	Record(ctx context.Context, outcome engine.Outcome, task history.Task)
}

// Result is a successful request. The caller must Release it once the
// response has been written.
type Result struct {
	Batch    request.Batch
	Response *aggregate.Response
	Outcomes []engine.Outcome
	session  *scratch.Session
}

// Release deletes every scratch file the request produced. Safe to call
// more than once.
func (r *Result) Release() {
	if r != nil && r.session != nil {
		r.session.Release()
	}
}

// Pipeline runs requests end to end.
type Pipeline struct {
	normalizer *request.Normalizer
	runner     Runner
	recorder   Recorder
	scratch    *scratch.Manager
	timeouts   config.Engine
	logger     *slog.Logger
}

// New assembles a pipeline.
func New(cfg *config.Config, runner Runner, recorder Recorder, scratchMgr *scratch.Manager, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		normalizer: request.NewNormalizer(cfg.Limits),
		runner:     runner,
		recorder:   recorder,
		scratch:    scratchMgr,
		timeouts:   cfg.Engine,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Execute validates req, transforms every source, records each outcome,
// and aggregates the response. Validation failures return before any
// scratch space is allocated. Cancelling ctx after validation does not stop
// the batch; only the per-item timeout bounds a running item.
func (p *Pipeline) Execute(ctx context.Context, req request.Request) (*Result, error) {
	batch, err := p.normalizer.Normalize(req)
	if err != nil {
		return nil, err
	}
	strategies, err := strategy.ResolveAll(batch.Category, batch.InputFormats, batch.Params)
	if err != nil {
		return nil, err
	}

	// Items run to completion and are recorded even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx = services.WithUserID(ctx, batch.UserID)
	ctx = services.WithCategory(ctx, batch.Category.String())
	logger := logging.WithContext(ctx, p.logger)

	session, err := p.scratch.Open()
	if err != nil {
		return nil, err
	}

	timeout := p.timeout(batch)
	logger.Info("batch accepted",
		logging.Int("items", len(batch.Sources)),
		logging.String("mode", batch.Mode.String()),
		logging.String("output_format", batch.Params.OutputFormat),
		logging.Duration("item_timeout", timeout),
		logging.String(logging.FieldEventType, "batch_accepted"),
	)

	start := time.Now()
	outcomes := p.runner.Run(ctx, engine.Batch{
		Sources:    batch.Sources,
		Strategies: strategies,
		Timeout:    timeout,
		Session:    session,
	})

	task := history.Task{
		UserID:           batch.UserID,
		Category:         batch.Category,
		CompressionLevel: compressionLevel(batch, strategies),
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		task.RequestID = id
	}
	if p.recorder != nil {
		for _, outcome := range outcomes {
			p.recorder.Record(ctx, outcome, task)
		}
	}

	resp, err := aggregate.Build(outcomes, aggregate.Options{
		Category:     batch.Category,
		OutputFormat: archiveFormat(batch),
		SingleItem:   batch.Mode == request.ModeSingle,
		ForceArchive: batch.ForceArchive,
	})
	if err != nil {
		session.Release()
		if errors.Is(err, aggregate.ErrAllFailed) {
			allFailed := &AllFailedError{Total: len(outcomes)}
			if n := len(outcomes); n > 0 {
				allFailed.Last = outcomes[n-1].Err
			}
			logging.WarnWithContext(logger, "batch failed", "batch_all_failed",
				logging.Int("items", len(outcomes)),
				logging.Error(allFailed.Last),
				logging.String(logging.FieldImpact, "request returns a server error"),
			)
			return nil, allFailed
		}
		return nil, err
	}

	logger.Info("batch completed",
		logging.Int("succeeded", resp.TotalFiles),
		logging.Int("failed", resp.FailedFiles),
		logging.Int64("original_bytes", resp.OriginalBytes),
		logging.Int64("output_bytes", resp.OutputBytes),
		logging.Duration("elapsed", time.Since(start)),
		logging.Bool("archive", resp.IsArchive()),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	return &Result{Batch: batch, Response: resp, Outcomes: outcomes, session: session}, nil
}

func (p *Pipeline) timeout(batch request.Batch) time.Duration {
	seconds := media.Timeout(p.timeouts, batch.Category)
	if batch.Category == media.CategoryCompression && batch.Kind == request.KindImage {
		seconds = p.timeouts.ImageTimeout
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// archiveFormat names the archive after the requested format, or after the
// shared input format when the category keeps formats.
func archiveFormat(batch request.Batch) string {
	if batch.Params.OutputFormat != "" && batch.Category != media.CategoryCompression {
		return batch.Params.OutputFormat
	}
	if batch.Category == media.CategoryBackgroundRemoval {
		return "png"
	}
	first := batch.InputFormats[0]
	for _, f := range batch.InputFormats[1:] {
		if f != first {
			return ""
		}
	}
	return first
}

func compressionLevel(batch request.Batch, strategies map[string]strategy.Strategy) string {
	if batch.Category != media.CategoryCompression {
		return ""
	}
	for _, s := range strategies {
		if s.Level != "" {
			return s.Level
		}
	}
	return strategy.NormalizeLevel(batch.Params.Level)
}
