package strategy

import "converto/internal/media"

// BackgroundOutputFormat is the only format background removal produces.
const BackgroundOutputFormat = "png"

func resolveBackground(in string) (Strategy, error) {
	if media.FamilyOf(in) != media.FamilyRaster {
		return Strategy{}, unsupported(media.CategoryBackgroundRemoval, in, BackgroundOutputFormat)
	}
	return Strategy{
		Category:     media.CategoryBackgroundRemoval,
		InputFormat:  in,
		OutputFormat: BackgroundOutputFormat,
		Tool:         ToolRembg,
		Args:         []string{"i", placeholderInput, placeholderOutput},
	}, nil
}

// NormalizeLevel maps a compression level onto low|medium|high.
func NormalizeLevel(level string) string {
	return NormalizePreset(level)
}

// compressionPreset trades quality for size: a high compression level encodes
// at the low quality tier.
func compressionPreset(level string) string {
	switch level {
	case PresetHigh:
		return PresetLow
	case PresetLow:
		return PresetHigh
	default:
		return PresetMedium
	}
}

// resolveCompression keeps the input format and re-encodes it smaller.
func resolveCompression(in string, params Params) (Strategy, error) {
	level := NormalizeLevel(params.Level)
	s := Strategy{
		Category:     media.CategoryCompression,
		InputFormat:  in,
		OutputFormat: in,
		Level:        level,
	}
	switch media.FamilyOf(in) {
	case media.FamilyRaster, media.FamilyAnimated:
		quality := params.Quality
		if quality <= 0 {
			quality = compressionQuality(level)
		}
		s.Quality = ClampQuality(quality)
		s.Tool = ToolMagick
		s.Args = magickArgs(in, in, s.Quality, params.ReduceColors)
	case media.FamilyVideo, media.FamilyAudio:
		family := media.FamilyOf(in)
		s.Preset = compressionPreset(level)
		codecs, ok := containerCodecs(family, family, in, presets[s.Preset])
		if !ok {
			return Strategy{}, unsupported(media.CategoryCompression, in, in)
		}
		s.Tool = ToolFFmpeg
		s.Args = ffmpegArgs(codecs)
	default:
		return Strategy{}, unsupported(media.CategoryCompression, in, in)
	}
	return s, nil
}

func compressionQuality(level string) int {
	switch level {
	case PresetHigh:
		return 60
	case PresetLow:
		return 92
	default:
		return DefaultQuality
	}
}
