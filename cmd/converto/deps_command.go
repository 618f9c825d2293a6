package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"converto/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that the external transform tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cfg.Tools)
			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(statuses)
			}

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Detail
				if detail == "" {
					detail = s.Description
				}
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(s.Optional), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Available", "Optional", "Detail"}, rows, nil))

			colorize := shouldColorize(out)
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				fmt.Fprintln(out, renderStatusLine("Dependencies", statusWarn, fmt.Sprintf("%d required tool(s) missing", len(missing)), colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Dependencies", statusOK, "all required tools available", colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
