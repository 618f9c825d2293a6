package media

import "converto/internal/config"

// Ceiling returns the maximum batch size configured for the category.
func Ceiling(limits config.Limits, category Category) int {
	switch category {
	case CategoryImage:
		return limits.Image
	case CategoryVideoAudio:
		return limits.VideoAudio
	case CategoryGif:
		return limits.Gif
	case CategoryDocument:
		return limits.Document
	case CategoryBackgroundRemoval:
		return limits.RemoveBackground
	case CategoryCompression:
		return limits.Compress
	default:
		return 0
	}
}

// Timeout returns the per-item timeout for the category in seconds.
func Timeout(engine config.Engine, category Category) int {
	switch category {
	case CategoryImage:
		return engine.ImageTimeout
	case CategoryVideoAudio:
		return engine.VideoTimeout
	case CategoryGif:
		return engine.GifTimeout
	case CategoryDocument:
		return engine.DocumentTimeout
	case CategoryBackgroundRemoval:
		return engine.BackgroundTimeout
	case CategoryCompression:
		return engine.VideoTimeout
	default:
		return engine.ImageTimeout
	}
}
