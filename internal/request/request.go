// Package request validates incoming batches before any work is dispatched.
package request

import (
	"errors"
	"fmt"
	"strings"

	"converto/internal/config"
	"converto/internal/media"
	"converto/internal/services"
	"converto/internal/sources"
	"converto/internal/strategy"
)

// ErrEmptyBatch is returned when a request names no sources.
var ErrEmptyBatch = fmt.Errorf("batch has no input paths: %w", services.ErrValidation)

// BatchTooLargeError reports a batch above the category ceiling.
type BatchTooLargeError struct {
	Category media.Category
	Count    int
	Limit    int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("%s batch of %d exceeds the limit of %d files", e.Category, e.Count, e.Limit)
}

// Is classifies the error as a client error.
func (e *BatchTooLargeError) Is(target error) bool {
	return target == services.ErrValidation
}

// Mode distinguishes inline single-item requests from pooled batches.
type Mode int

const (
	ModeSingle Mode = iota + 1
	ModeMulti
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "multi"
}

// Compression kinds accepted by the compress endpoint.
const (
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
)

// Request is the caller's raw submission.
type Request struct {
	Category media.Category
	// Kind narrows compression to image, video, or audio inputs.
	Kind         string
	Sources      []string
	Params       strategy.Params
	ForceArchive bool
	UserID       int64
}

// Batch is an accepted, immutable request.
type Batch struct {
	Category     media.Category
	Kind         string
	Mode         Mode
	Sources      []string
	InputFormats []string
	Params       strategy.Params
	ForceArchive bool
	UserID       int64
}

// Normalizer applies per-category ceilings.
type Normalizer struct {
	limits config.Limits
}

// NewNormalizer builds a normalizer from configured limits.
func NewNormalizer(limits config.Limits) *Normalizer {
	return &Normalizer{limits: limits}
}

// Normalize validates req. Every failure wraps services.ErrValidation.
func (n *Normalizer) Normalize(req Request) (Batch, error) {
	if !req.Category.Valid() {
		return Batch{}, services.Wrap(services.ErrValidation, "request", "category", fmt.Sprintf("unknown category %d", int(req.Category)), nil)
	}
	if req.UserID <= 0 {
		return Batch{}, services.Wrap(services.ErrValidation, "request", "identity", "user id required", nil)
	}

	cleaned := make([]string, 0, len(req.Sources))
	blank := -1
	for i, raw := range req.Sources {
		if raw = strings.TrimSpace(raw); raw != "" {
			cleaned = append(cleaned, raw)
		} else if blank < 0 {
			blank = i
		}
	}
	if len(cleaned) == 0 {
		return Batch{}, ErrEmptyBatch
	}
	// Every path must map to an outcome, so a blank entry fails the request.
	if blank >= 0 {
		return Batch{}, services.Wrap(services.ErrValidation, "request", "sources", fmt.Sprintf("input path %d is blank", blank), nil)
	}
	if limit := media.Ceiling(n.limits, req.Category); limit > 0 && len(cleaned) > limit {
		return Batch{}, &BatchTooLargeError{Category: req.Category, Count: len(cleaned), Limit: limit}
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if req.Category == media.CategoryCompression {
		if _, ok := kindFamilies[kind]; !ok {
			return Batch{}, services.Wrap(services.ErrValidation, "request", "kind", fmt.Sprintf("unknown compression kind %q", req.Kind), nil)
		}
	}

	formats := make([]string, len(cleaned))
	for i, raw := range cleaned {
		loc, err := sources.Parse(raw)
		if err != nil {
			return Batch{}, services.Wrap(services.ErrValidation, "request", "source", "invalid input path", err)
		}
		formats[i] = media.FormatOf(loc.Name())
		if req.Category == media.CategoryCompression && !kindAccepts(kind, formats[i]) {
			return Batch{}, &strategy.UnsupportedCombinationError{Category: req.Category, Input: formats[i], Output: kind}
		}
	}

	params := req.Params
	params.OutputFormat = media.NormalizeFormat(params.OutputFormat)
	if needsOutputFormat(req.Category) && params.OutputFormat == "" {
		return Batch{}, services.Wrap(services.ErrValidation, "request", "output_format", "output_format required", nil)
	}

	mode := ModeMulti
	if len(cleaned) == 1 {
		mode = ModeSingle
	}
	return Batch{
		Category:     req.Category,
		Kind:         kind,
		Mode:         mode,
		Sources:      cleaned,
		InputFormats: formats,
		Params:       params,
		ForceArchive: req.ForceArchive,
		UserID:       req.UserID,
	}, nil
}

var kindFamilies = map[string][]media.Family{
	KindImage: {media.FamilyRaster, media.FamilyAnimated},
	KindVideo: {media.FamilyVideo},
	KindAudio: {media.FamilyAudio},
}

func kindAccepts(kind, format string) bool {
	family := media.FamilyOf(format)
	for _, f := range kindFamilies[kind] {
		if f == family {
			return true
		}
	}
	return false
}

func needsOutputFormat(category media.Category) bool {
	switch category {
	case media.CategoryBackgroundRemoval, media.CategoryCompression:
		return false
	default:
		return true
	}
}

// ConvertCategory resolves the {category} segment of a conversion endpoint.
// Only conversion categories are accepted.
func ConvertCategory(name string) (media.Category, error) {
	cat, ok := media.ParseCategory(name)
	if ok {
		switch cat {
		case media.CategoryImage, media.CategoryVideoAudio, media.CategoryGif, media.CategoryDocument:
			return cat, nil
		}
	}
	return 0, services.Wrap(services.ErrNotFound, "request", "category", fmt.Sprintf("no conversion endpoint for %q", name), nil)
}

// IsBatchTooLarge reports whether err carries a BatchTooLargeError.
func IsBatchTooLarge(err error) bool {
	var target *BatchTooLargeError
	return errors.As(err, &target)
}
