package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"converto/internal/daemon"
	"converto/internal/deps"
	"converto/internal/logging"
	"converto/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP transformation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg, true)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if missing := deps.MissingRequired(deps.Check(cfg.Tools)); len(missing) > 0 {
				logging.WarnWithContext(logger, "transform tools missing", "deps_missing",
					logging.Any("tools", missing),
					logging.String(logging.FieldErrorHint, "install the tools or fix [tools] in config.toml"),
					logging.String(logging.FieldImpact, "requests needing these tools will fail"),
				)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			pipe, closer, err := pipeline.Build(runCtx, cfg, store, logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			defer closer.Close()

			d, err := daemon.New(cfg, store, pipe, logger)
			if err != nil {
				return err
			}
			if err := d.Start(runCtx); err != nil {
				return err
			}
			defer d.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "converto listening on %s\n", d.Address())
			<-runCtx.Done()
			logger.Info("converto shutting down")
			return nil
		},
	}
}
