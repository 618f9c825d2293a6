package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// StreamReport is the parsed subset of ffprobe JSON output.
type StreamReport struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// inspectStreams runs ffprobe against path and decodes the JSON response.
func inspectStreams(ctx context.Context, binary, path string) (StreamReport, error) {
	if strings.TrimSpace(path) == "" {
		return StreamReport{}, errors.New("ffprobe inspect: empty path")
	}
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return StreamReport{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var report StreamReport
	if err := json.Unmarshal(output, &report); err != nil {
		return StreamReport{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return report, nil
}

func (r StreamReport) count(codecType string) int {
	n := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			n++
		}
	}
	return n
}

// DurationSeconds returns the container duration, or 0 when unavailable.
func (r StreamReport) DurationSeconds() float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || math.IsNaN(value) || value < 0 {
		return 0
	}
	return value
}

func (r StreamReport) firstVideo() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}
