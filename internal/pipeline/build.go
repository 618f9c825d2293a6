package pipeline

import (
	"context"
	"io"
	"log/slog"

	"converto/internal/config"
	"converto/internal/engine"
	"converto/internal/events"
	"converto/internal/history"
	"converto/internal/logging"
	"converto/internal/probe"
	"converto/internal/scratch"
	"converto/internal/sources"
	"converto/internal/transform"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Build wires the production collaborators from cfg: the tool runner, the
// S3 localizer when enabled, output verification, the history recorder over
// store, and the AMQP publisher when a broker is configured. The returned
// closer releases the publisher connection.
func Build(ctx context.Context, cfg *config.Config, store *history.Store, logger *slog.Logger) (*Pipeline, io.Closer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	scratchMgr := scratch.NewManager(cfg.Paths.ScratchDir, logger)
	if err := scratchMgr.Check(); err != nil {
		return nil, nil, err
	}

	var objects sources.ObjectGetter
	if cfg.S3.Enabled {
		client, err := sources.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		objects = client
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Engine.VerifyOutputs {
		engineOpts = append(engineOpts, engine.WithVerifier(probe.New(cfg.Tools.FFprobe)))
	}
	eng := engine.New(
		cfg.WorkerCount(),
		transform.NewRunner(cfg.Tools, transform.WithLogger(logger)),
		sources.NewLocalizer(objects, logger),
		engineOpts...,
	)

	var closer io.Closer = nopCloser{}
	recorderOpts := []history.RecorderOption{history.WithRecorderLogger(logger)}
	publisher, err := events.Dial(cfg.Events, logger)
	if err != nil {
		logging.WarnWithContext(logger, "event publisher unavailable", "events_dial_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.amqp_url"),
			logging.String(logging.FieldImpact, "task history is stored but not published"),
		)
	} else if publisher != nil {
		recorderOpts = append(recorderOpts, history.WithPublisher(publisher))
		closer = publisher
	}

	var recorder Recorder
	if store != nil {
		recorder = history.NewRecorder(store, recorderOpts...)
	}
	return New(cfg, eng, recorder, scratchMgr, logger), closer, nil
}
