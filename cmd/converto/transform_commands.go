package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"converto/internal/aggregate"
	"converto/internal/engine"
	"converto/internal/fileutil"
	"converto/internal/media"
	"converto/internal/pipeline"
	"converto/internal/request"
	"converto/internal/services"
	"converto/internal/strategy"
)

type transformFlags struct {
	userID  int64
	outDir  string
	archive bool
}

func (f *transformFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.userID, "user", 1, "User id recorded in task history")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", ".", "Directory receiving the results")
	cmd.Flags().BoolVar(&f.archive, "zip", false, "Write a zip archive even for a single result")
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags transformFlags
	var categoryName, format, bitrate string
	var quality int

	cmd := &cobra.Command{
		Use:   "convert [flags] FILE...",
		Short: "Convert files to another format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := request.ConvertCategory(categoryName)
			if err != nil {
				return err
			}
			return runTransform(cmd, ctx, flags, request.Request{
				Category: category,
				Sources:  args,
				Params:   strategy.Params{OutputFormat: format, Quality: quality, Bitrate: bitrate},
			})
		},
	}
	cmd.Flags().StringVar(&categoryName, "category", "image", "Conversion category: image, video_audio, gif, document")
	cmd.Flags().StringVarP(&format, "to", "t", "", "Output format (png, webp, mp4, pdf, ...)")
	cmd.Flags().IntVarP(&quality, "quality", "q", strategy.DefaultQuality, "Image quality 1-100")
	cmd.Flags().StringVar(&bitrate, "bitrate", strategy.PresetMedium, "Video/audio preset: low, medium, high")
	_ = cmd.MarkFlagRequired("to")
	flags.register(cmd)
	return cmd
}

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var flags transformFlags
	var kind, level string
	var reduceColors bool

	cmd := &cobra.Command{
		Use:   "compress [flags] FILE...",
		Short: "Compress files while keeping their format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, ctx, flags, request.Request{
				Category: media.CategoryCompression,
				Kind:     kind,
				Sources:  args,
				Params:   strategy.Params{Level: level, ReduceColors: reduceColors},
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", request.KindImage, "Input kind: image, video, audio")
	cmd.Flags().StringVar(&level, "level", strategy.PresetMedium, "Compression level: low, medium, high")
	cmd.Flags().BoolVar(&reduceColors, "reduce-colors", false, "Reduce PNG output to a 256-colour palette")
	flags.register(cmd)
	return cmd
}

func newRemoveBackgroundCommand(ctx *commandContext) *cobra.Command {
	var flags transformFlags
	cmd := &cobra.Command{
		Use:   "remove-bg [flags] FILE...",
		Short: "Remove image backgrounds (PNG output)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, ctx, flags, request.Request{
				Category: media.CategoryBackgroundRemoval,
				Sources:  args,
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runTransform(cmd *cobra.Command, ctx *commandContext, flags transformFlags, req request.Request) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.commandLogger()
	if err != nil {
		return err
	}
	store, err := ctx.openStore()
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	pipe, closer, err := pipeline.Build(cmd.Context(), cfg, store, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	req.UserID = flags.userID
	req.ForceArchive = flags.archive
	req.Sources = absoluteSources(req.Sources)

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	result, err := pipe.Execute(services.WithRequestID(cmd.Context(), "cli"), req)
	if err != nil {
		var allFailed *pipeline.AllFailedError
		if errors.As(err, &allFailed) {
			fmt.Fprintln(out, renderStatusLine("Result", statusError, fmt.Sprintf("all %d items failed", allFailed.Total), colorize))
		}
		return err
	}
	defer result.Release()

	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	written, err := export(result.Response, flags.outDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderOutcomeTable(result.Outcomes))
	kind := statusOK
	if result.Response.FailedFiles > 0 {
		kind = statusWarn
	}
	summary := fmt.Sprintf("%d succeeded, %d failed, %s -> %s",
		result.Response.TotalFiles, result.Response.FailedFiles,
		formatBytes(result.Response.OriginalBytes), formatBytes(result.Response.OutputBytes))
	if req.Category == media.CategoryCompression {
		if ratio := aggregate.CompressionRatio(result.Response.OriginalBytes, result.Response.OutputBytes); ratio != "" {
			summary += " (" + ratio + " smaller)"
		}
	}
	fmt.Fprintln(out, renderStatusLine("Result", kind, summary, colorize))
	for _, path := range written {
		fmt.Fprintln(out, renderStatusLine("Wrote", statusInfo, path, colorize))
	}
	return nil
}

// export copies the response artifacts out of scratch space into dir.
func export(resp *aggregate.Response, dir string) ([]string, error) {
	if !resp.IsArchive() {
		dst := fileutil.UniquePath(dir, resp.DownloadName)
		if err := fileutil.CopyFileVerified(resp.Single.Path, dst); err != nil {
			return nil, fmt.Errorf("export %s: %w", resp.DownloadName, err)
		}
		return []string{dst}, nil
	}

	dst := fileutil.UniquePath(dir, resp.DownloadName)
	file, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	if err := aggregate.WriteArchive(file, resp.Entries); err != nil {
		_ = file.Close()
		_ = os.Remove(dst)
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return []string{dst}, nil
}

func absoluteSources(raw []string) []string {
	out := make([]string, len(raw))
	for i, src := range raw {
		out[i] = src
		if strings.HasPrefix(strings.ToLower(src), "s3://") {
			continue
		}
		if abs, err := filepath.Abs(src); err == nil {
			out[i] = abs
		}
	}
	return out
}

func renderOutcomeTable(outcomes []engine.Outcome) string {
	sorted := append([]engine.Outcome(nil), outcomes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	rows := make([][]string, 0, len(sorted))
	for _, o := range sorted {
		status := "ok"
		detail := filepath.Base(o.Output)
		if !o.Success {
			status = "failed"
			detail = firstLine(o.Err)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", o.Index+1),
			o.SourceName,
			status,
			formatBytes(o.OriginalSize),
			formatBytes(o.OutputSize),
			o.Elapsed.Round(time.Millisecond).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"#", "Source", "Status", "Original", "Output", "Elapsed", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
