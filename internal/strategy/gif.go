package strategy

import "converto/internal/media"

const paletteFilter = "fps=12,scale=480:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"

func resolveGif(in, out string, params Params) (Strategy, error) {
	direction := media.Classify(media.CategoryGif, in, out)
	s := Strategy{
		Category:     media.CategoryGif,
		Direction:    direction,
		InputFormat:  in,
		OutputFormat: out,
	}
	switch direction {
	case media.DirectionImageToGif:
		s.Tool = ToolMagick
		s.Args = []string{placeholderInput, "-colors", "256", placeholderOutput}
	case media.DirectionGifToImage:
		s.Tool = ToolMagick
		s.Quality = ClampQuality(params.Quality)
		s.Args = magickArgs(in, out, s.Quality, false)
	case media.DirectionGifToVideo:
		s.Preset = NormalizePreset(params.Bitrate)
		codecs, ok := videoCodecs(out, presets[s.Preset])
		if !ok {
			return Strategy{}, unsupported(media.CategoryGif, in, out)
		}
		s.Tool = ToolFFmpeg
		// gif has no audio and odd dimensions break yuv420p encoders.
		s.Args = ffmpegArgs(withoutAudio(codecs), "-an", "-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2", "-pix_fmt", "yuv420p")
	case media.DirectionVideoToGif:
		s.Tool = ToolFFmpeg
		s.Args = ffmpegArgs([]string{"-loop", "0"}, "-an", "-filter_complex", paletteFilter)
	default:
		return Strategy{}, unsupported(media.CategoryGif, in, out)
	}
	return s, nil
}

// withoutAudio strips audio codec flags and the pix_fmt duplicate.
func withoutAudio(codecs []string) []string {
	out := make([]string, 0, len(codecs))
	for i := 0; i < len(codecs); i++ {
		switch codecs[i] {
		case "-c:a", "-b:a", "-pix_fmt":
			i++
			continue
		}
		out = append(out, codecs[i])
	}
	return out
}
