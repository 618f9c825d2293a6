package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"converto/internal/engine"
	"converto/internal/logging"
	"converto/internal/media"
	"converto/internal/services"
)

// Inserter is the write side of Store.
type Inserter interface {
	Insert(ctx context.Context, rec Record) (int64, error)
}

// Publisher announces stored records to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// Task carries the request-level facts shared by every item in a batch.
type Task struct {
	UserID           int64
	Category         media.Category
	CompressionLevel string
	RequestID        string
}

// Recorder turns engine outcomes into history records.
type Recorder struct {
	store     Inserter
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithPublisher attaches a publisher notified after each successful insert.
func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithRecorderLogger overrides the recorder logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder builds a recorder over store. A nil store records nothing.
func NewRecorder(store Inserter, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "history")
	return r
}

// Build converts an outcome into a record without persisting it.
func Build(outcome engine.Outcome, task Task, createdAt time.Time) Record {
	rec := Record{
		UserID:           task.UserID,
		ServiceType:      task.Category.ServiceType(),
		Category:         task.Category.String(),
		RequestID:        task.RequestID,
		OriginalFileName: outcome.SourceName,
		OriginalFileSize: outcome.OriginalSize,
		OriginalFilePath: outcome.Source,
		Elapsed:          outcome.Elapsed,
		InputFormat:      outcome.InputFormat,
		OutputFormat:     outcome.OutputFormat,
		CompressionLevel: task.CompressionLevel,
		CreatedAt:        createdAt,
	}
	if outcome.Success {
		rec.Status = StatusCompleted
		rec.OutputFileName = filepath.Base(outcome.Output)
		rec.OutputFileSize = outcome.OutputSize
		rec.OutputFilePath = outcome.Output
		return rec
	}
	rec.Status = StatusFailed
	if outcome.Err != nil {
		rec.ErrorMessage = outcome.Err.Error()
	}
	return rec
}

// Record persists one outcome. Failures are logged and never returned.
func (r *Recorder) Record(ctx context.Context, outcome engine.Outcome, task Task) {
	if r == nil || r.store == nil {
		return
	}
	rec := Build(outcome, task, r.now())
	logger := logging.WithContext(services.WithItemIndex(ctx, outcome.Index), r.logger)

	id, err := r.store.Insert(ctx, rec)
	if err != nil {
		logging.WarnWithContext(logger, "task history not recorded", "history_insert_failed",
			logging.String(logging.FieldSource, outcome.Source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and free space"),
			logging.String(logging.FieldImpact, "result delivered but missing from history"),
		)
		return
	}
	rec.ID = id
	logger.Debug("task history recorded",
		logging.Int64("history_id", id),
		logging.String("status", string(rec.Status)),
	)

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "task event not published", "history_publish_failed",
			logging.Int64("history_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.amqp_url and broker availability"),
			logging.String(logging.FieldImpact, "downstream consumers miss this task"),
		)
	}
}
