package media

import (
	"fmt"
	"strings"
)

// Category is the kind of transformation requested.
type Category int

const (
	CategoryImage Category = iota + 1
	CategoryVideoAudio
	CategoryGif
	CategoryDocument
	CategoryBackgroundRemoval
	CategoryCompression
)

var categoryNames = map[Category]string{
	CategoryImage:             "image",
	CategoryVideoAudio:        "video_audio",
	CategoryGif:               "gif",
	CategoryDocument:          "document",
	CategoryBackgroundRemoval: "remove_background",
	CategoryCompression:       "compress",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryImage,
		CategoryVideoAudio,
		CategoryGif,
		CategoryDocument,
		CategoryBackgroundRemoval,
		CategoryCompression,
	}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory resolves an endpoint or CLI name to a Category. Hyphens and
// case are ignored, and "video", "audio", and "remove-bg" are accepted as aliases.
func ParseCategory(name string) (Category, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	switch key {
	case "video", "audio":
		return CategoryVideoAudio, true
	case "remove_bg", "removebg", "background":
		return CategoryBackgroundRemoval, true
	case "compression":
		return CategoryCompression, true
	}
	for cat, label := range categoryNames {
		if label == key {
			return cat, true
		}
	}
	return 0, false
}

// ServiceType identifies the billing/history service a category belongs to.
type ServiceType int64

const (
	ServiceConversion        ServiceType = 1
	ServiceCompression       ServiceType = 2
	ServiceBackgroundRemoval ServiceType = 3
)

func (s ServiceType) String() string {
	switch s {
	case ServiceConversion:
		return "Conversion"
	case ServiceCompression:
		return "Compression"
	case ServiceBackgroundRemoval:
		return "Background Removal"
	default:
		return fmt.Sprintf("Service %d", int64(s))
	}
}

// ServiceType maps the category to its history service id.
func (c Category) ServiceType() ServiceType {
	switch c {
	case CategoryCompression:
		return ServiceCompression
	case CategoryBackgroundRemoval:
		return ServiceBackgroundRemoval
	default:
		return ServiceConversion
	}
}

// Suffix is appended to the original stem when naming outputs.
func (c Category) Suffix() string {
	switch c {
	case CategoryCompression:
		return "compressed"
	case CategoryBackgroundRemoval:
		return "removedbg"
	default:
		return "converted"
	}
}
