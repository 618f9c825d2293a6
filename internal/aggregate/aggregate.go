package aggregate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"converto/internal/engine"
	"converto/internal/media"
	"converto/internal/scratch"
)

// ErrAllFailed is returned when no outcome succeeded.
var ErrAllFailed = errors.New("all items failed")

// Entry is one artifact destined for the archive.
type Entry struct {
	Name   string
	Path   string
	Size   int64
	Source string
}

// Response is the derived answer for a batch.
type Response struct {
	// Single is set when the response is one artifact; otherwise Entries
	// lists the archive contents.
	Single        *Entry
	Entries       []Entry
	MediaType     string
	DownloadName  string
	TotalFiles    int
	FailedFiles   int
	OriginalBytes int64
	OutputBytes   int64
}

// IsArchive reports whether the response bundles several artifacts.
func (r *Response) IsArchive() bool { return r.Single == nil }

// Options control response shaping.
type Options struct {
	Category     media.Category
	OutputFormat string
	// SingleItem is true when the request carried exactly one source.
	SingleItem bool
	// ForceArchive bundles even a single artifact.
	ForceArchive bool
}

// Build partitions outcomes and decides between single and archive
// responses. Totals cover successful outcomes only.
func Build(outcomes []engine.Outcome, opts Options) (*Response, error) {
	succeeded, failed := engine.Partition(outcomes)
	if len(succeeded) == 0 {
		return nil, ErrAllFailed
	}

	resp := &Response{
		TotalFiles:  len(succeeded),
		FailedFiles: len(failed),
	}
	for _, o := range succeeded {
		resp.OriginalBytes += o.OriginalSize
		resp.OutputBytes += o.OutputSize
	}

	names := newNamer(opts.Category.Suffix())
	entries := make([]Entry, 0, len(succeeded))
	for _, o := range sortedByIndex(succeeded) {
		entries = append(entries, Entry{
			Name:   names.next(o.SourceName, o.OutputFormat),
			Path:   o.Output,
			Size:   o.OutputSize,
			Source: o.Source,
		})
	}

	if opts.SingleItem && len(entries) == 1 && !opts.ForceArchive {
		entry := entries[0]
		resp.Single = &entry
		resp.MediaType = media.MediaType(succeeded[0].OutputFormat)
		resp.DownloadName = entry.Name
		return resp, nil
	}

	resp.Entries = entries
	resp.MediaType = media.MediaType("zip")
	resp.DownloadName = ArchiveName(opts.Category, opts.OutputFormat)
	return resp, nil
}

// ArchiveName is the download name for an archive response.
func ArchiveName(category media.Category, outputFormat string) string {
	format := media.NormalizeFormat(outputFormat)
	if format == "" {
		format = "mixed"
	}
	return fmt.Sprintf("converted_%s_%s.zip", category, format)
}

// CompressionRatio returns the size reduction as a percentage string, e.g.
// "42.50%". It returns "" when original is zero.
func CompressionRatio(original, output int64) string {
	if original <= 0 {
		return ""
	}
	ratio := float64(original-output) / float64(original) * 100
	return strconv.FormatFloat(ratio, 'f', 2, 64) + "%"
}

func sortedByIndex(outcomes []engine.Outcome) []engine.Outcome {
	out := slices.Clone(outcomes)
	slices.SortFunc(out, func(a, b engine.Outcome) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// namer produces "{stem}_{suffix}.{fmt}" names. A repeated name gets
// "-2", "-3", ... appended to its stem.
type namer struct {
	suffix string
	taken  map[string]struct{}
}

func newNamer(suffix string) *namer {
	return &namer{suffix: suffix, taken: make(map[string]struct{})}
}

func (n *namer) next(sourceName, format string) string {
	stem := scratch.Stem(sourceName)
	name := fmt.Sprintf("%s_%s.%s", stem, n.suffix, format)
	for i := 2; ; i++ {
		if _, dup := n.taken[name]; !dup {
			break
		}
		name = fmt.Sprintf("%s-%d_%s.%s", stem, i, n.suffix, format)
	}
	n.taken[name] = struct{}{}
	return name
}
