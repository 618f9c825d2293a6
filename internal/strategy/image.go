package strategy

import (
	"strconv"

	"converto/internal/media"
)

// DefaultQuality is used when the caller supplies no usable quality.
const DefaultQuality = 85

var imageOutputs = map[string]bool{
	"jpg": true, "png": true, "webp": true, "avif": true,
	"bmp": true, "tiff": true, "ico": true, "gif": true,
}

// ClampQuality maps the caller's quality onto 1..100. Non-positive values
// fall back to DefaultQuality.
func ClampQuality(q int) int {
	switch {
	case q <= 0:
		return DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}

func resolveImage(in, out string, params Params) (Strategy, error) {
	inFamily := media.FamilyOf(in)
	if inFamily != media.FamilyRaster && inFamily != media.FamilyAnimated {
		return Strategy{}, unsupported(media.CategoryImage, in, out)
	}
	if !imageOutputs[out] {
		return Strategy{}, unsupported(media.CategoryImage, in, out)
	}
	quality := ClampQuality(params.Quality)
	return Strategy{
		Category:     media.CategoryImage,
		InputFormat:  in,
		OutputFormat: out,
		Tool:         ToolMagick,
		Args:         magickArgs(in, out, quality, params.ReduceColors),
		Quality:      quality,
	}, nil
}

// magickArgs builds "{input} <encoder flags> {output}". Animated inputs are
// read from their first frame.
func magickArgs(in, out string, quality int, reduceColors bool) []string {
	source := placeholderInput
	if media.FamilyOf(in) == media.FamilyAnimated && out != "gif" {
		source = placeholderInput + "[0]"
	}
	args := []string{source}
	args = append(args, encoderFlags(out, quality, reduceColors)...)
	return append(args, placeholderOutput)
}

func encoderFlags(out string, quality int, reduceColors bool) []string {
	q := strconv.Itoa(quality)
	switch out {
	case "jpg":
		return []string{"-sampling-factor", "4:2:0", "-quality", q, "-strip", "-interlace", "Plane"}
	case "png":
		flags := []string{"-strip", "-define", "png:compression-level=9"}
		if reduceColors {
			flags = append(flags, "-colors", "256")
		}
		return flags
	case "webp":
		return []string{"-quality", q, "-define", "webp:method=6"}
	case "avif":
		return []string{"-quality", q, "-define", "heic:speed=6"}
	case "gif":
		return []string{"-colors", "256"}
	case "tiff":
		return []string{"-compress", "lzw"}
	case "ico":
		return []string{"-resize", "256x256>", "-define", "icon:auto-resize=256,128,64,48,32,16"}
	default:
		return []string{"-strip"}
	}
}
