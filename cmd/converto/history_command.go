package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"converto/internal/history"
	"converto/internal/media"
)

var titleCaser = cases.Title(language.English)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var userID, serviceID int64
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transformation tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			var records []history.Record
			service := media.ServiceType(serviceID)
			switch {
			case userID > 0 && serviceID > 0:
				records, err = store.ListByUserAndService(cmd.Context(), userID, service, limit)
			case userID > 0:
				records, err = store.ListByUser(cmd.Context(), userID, limit)
			case serviceID > 0:
				records, err = store.ListByService(cmd.Context(), service, limit)
			default:
				records, err = store.ListAll(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if records == nil {
					records = []history.Record{}
				}
				return encoder.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No tasks recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "Only tasks of this user id")
	cmd.Flags().Int64Var(&serviceID, "service", 0, "Only tasks of this service type (1 conversion, 2 compression, 3 background removal)")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderHistoryTable(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		formats := r.InputFormat
		if r.OutputFormat != "" && r.OutputFormat != r.InputFormat {
			formats += " → " + r.OutputFormat
		}
		if r.CompressionLevel != "" {
			formats += " (" + r.CompressionLevel + ")"
		}
		output := "-"
		if r.OutputFileName != "" {
			output = fmt.Sprintf("%s (%s)", r.OutputFileName, formatBytes(r.OutputFileSize))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", r.UserID),
			categoryLabel(r.Category),
			fmt.Sprintf("%s (%s)", r.OriginalFileName, formatBytes(r.OriginalFileSize)),
			output,
			formats,
			string(r.Status),
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"ID", "Created", "User", "Category", "Original", "Output", "Formats", "Status", "Elapsed"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// categoryLabel renders "video_audio" as "Video Audio".
func categoryLabel(category string) string {
	return titleCaser.String(strings.ReplaceAll(category, "_", " "))
}
