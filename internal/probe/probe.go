package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"

	"converto/internal/media"
	"converto/internal/services"
)

// Report summarizes a verified artifact.
type Report struct {
	Width        int
	Height       int
	VideoStreams int
	AudioStreams int
	Duration     float64
	Verified     bool
}

var decodable = map[string]bool{"jpg": true, "png": true, "gif": true, "bmp": true, "tiff": true}

// Prober verifies outputs. The zero value skips stream checks.
type Prober struct {
	ffprobe string
}

// New builds a prober. ffprobe may be empty or missing from PATH, in which
// case video and audio outputs are not stream-checked.
func New(ffprobe string) *Prober {
	ffprobe = strings.TrimSpace(ffprobe)
	if ffprobe != "" {
		if resolved, err := exec.LookPath(ffprobe); err == nil {
			ffprobe = resolved
		} else {
			ffprobe = ""
		}
	}
	return &Prober{ffprobe: ffprobe}
}

// Verify inspects path as the given output format.
func (p *Prober) Verify(ctx context.Context, path, format string) (Report, error) {
	format = media.NormalizeFormat(format)
	switch {
	case decodable[format]:
		return verifyRaster(path)
	case media.FamilyOf(format) == media.FamilyVideo || media.FamilyOf(format) == media.FamilyAudio:
		if p == nil || p.ffprobe == "" {
			return Report{}, nil
		}
		return p.verifyStreams(ctx, path, media.FamilyOf(format))
	default:
		return Report{}, nil
	}
}

func verifyRaster(path string) (Report, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Report{}, services.Wrap(services.ErrExternalTool, "probe", "decode", path, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return Report{}, services.Wrap(services.ErrExternalTool, "probe", "decode", "image has no pixels", nil)
	}
	return Report{Width: bounds.Dx(), Height: bounds.Dy(), Verified: true}, nil
}

func (p *Prober) verifyStreams(ctx context.Context, path string, family media.Family) (Report, error) {
	result, err := inspectStreams(ctx, p.ffprobe, path)
	if err != nil {
		return Report{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", path, err)
	}
	report := Report{
		VideoStreams: result.count("video"),
		AudioStreams: result.count("audio"),
		Duration:     result.DurationSeconds(),
		Verified:     true,
	}
	if video, ok := result.firstVideo(); ok {
		report.Width, report.Height = video.Width, video.Height
	}
	if family == media.FamilyVideo && report.VideoStreams == 0 {
		return report, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", fmt.Sprintf("%s has no video stream", path), nil)
	}
	if report.VideoStreams+report.AudioStreams == 0 {
		return report, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", fmt.Sprintf("%s has no media streams", path), nil)
	}
	return report, nil
}
