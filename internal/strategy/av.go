package strategy

import (
	"strings"

	"converto/internal/media"
)

const (
	PresetLow    = "low"
	PresetMedium = "medium"
	PresetHigh   = "high"
)

// NormalizePreset maps unknown tiers to medium.
func NormalizePreset(preset string) string {
	switch p := strings.ToLower(strings.TrimSpace(preset)); p {
	case PresetLow, PresetHigh:
		return p
	default:
		return PresetMedium
	}
}

type presetValues struct {
	videoBitrate string
	crf          string
	qscale       string
	audioBitrate string
}

var presets = map[string]presetValues{
	PresetLow:    {videoBitrate: "800k", crf: "36", qscale: "10", audioBitrate: "96k"},
	PresetMedium: {videoBitrate: "2M", crf: "30", qscale: "5", audioBitrate: "160k"},
	PresetHigh:   {videoBitrate: "5M", crf: "22", qscale: "2", audioBitrate: "256k"},
}

// videoCodecs selects LGPL-compatible encoders per container.
func videoCodecs(container string, p presetValues) ([]string, bool) {
	switch container {
	case "mp4":
		return []string{"-c:v", "libopenh264", "-b:v", p.videoBitrate, "-pix_fmt", "yuv420p", "-c:a", "aac", "-b:a", p.audioBitrate, "-movflags", "+faststart"}, true
	case "webm", "mkv":
		return []string{"-c:v", "libvpx-vp9", "-crf", p.crf, "-b:v", "0", "-c:a", "libopus", "-b:a", p.audioBitrate}, true
	case "avi":
		return []string{"-c:v", "mpeg4", "-q:v", p.qscale, "-c:a", "libmp3lame", "-b:a", p.audioBitrate}, true
	case "mov":
		return []string{"-c:v", "mpeg4", "-q:v", p.qscale, "-c:a", "aac", "-b:a", p.audioBitrate}, true
	default:
		return nil, false
	}
}

func audioCodecs(container string, p presetValues) ([]string, bool) {
	switch container {
	case "mp3":
		return []string{"-vn", "-c:a", "libmp3lame", "-b:a", p.audioBitrate}, true
	case "wav":
		return []string{"-vn", "-c:a", "pcm_s16le"}, true
	case "flac":
		return []string{"-vn", "-c:a", "flac"}, true
	case "ogg":
		return []string{"-vn", "-c:a", "libvorbis", "-b:a", p.audioBitrate}, true
	case "aac", "m4a":
		return []string{"-vn", "-c:a", "aac", "-b:a", p.audioBitrate}, true
	case "opus":
		return []string{"-vn", "-c:a", "libopus", "-b:a", p.audioBitrate}, true
	default:
		return nil, false
	}
}

func ffmpegArgs(codecArgs []string, extra ...string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", placeholderInput}
	args = append(args, extra...)
	args = append(args, codecArgs...)
	return append(args, placeholderOutput)
}

func resolveVideoAudio(in, out string, params Params) (Strategy, error) {
	inFamily := media.FamilyOf(in)
	outFamily := media.FamilyOf(out)
	if inFamily != media.FamilyVideo && inFamily != media.FamilyAudio {
		return Strategy{}, unsupported(media.CategoryVideoAudio, in, out)
	}
	preset := NormalizePreset(params.Bitrate)
	codecs, ok := containerCodecs(inFamily, outFamily, out, presets[preset])
	if !ok {
		return Strategy{}, unsupported(media.CategoryVideoAudio, in, out)
	}
	return Strategy{
		Category:     media.CategoryVideoAudio,
		InputFormat:  in,
		OutputFormat: out,
		Tool:         ToolFFmpeg,
		Args:         ffmpegArgs(codecs),
		Preset:       preset,
	}, nil
}

// containerCodecs rejects audio sources asked to become video.
func containerCodecs(inFamily, outFamily media.Family, out string, p presetValues) ([]string, bool) {
	switch outFamily {
	case media.FamilyVideo:
		if inFamily != media.FamilyVideo {
			return nil, false
		}
		return videoCodecs(out, p)
	case media.FamilyAudio:
		return audioCodecs(out, p)
	default:
		return nil, false
	}
}
