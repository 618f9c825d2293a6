package request_test

import (
	"errors"
	"fmt"
	"testing"

	"converto/internal/config"
	"converto/internal/media"
	"converto/internal/request"
	"converto/internal/services"
	"converto/internal/strategy"
)

func newNormalizer() *request.Normalizer {
	return request.NewNormalizer(config.Default().Limits)
}

func paths(n int, ext string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/in/file%d.%s", i, ext)
	}
	return out
}

func TestNormalizeSingleAndMulti(t *testing.T) {
	n := newNormalizer()

	single, err := n.Normalize(request.Request{
		Category: media.CategoryImage,
		Sources:  []string{"/in/photo.PNG"},
		Params:   strategy.Params{OutputFormat: ".WEBP", Quality: 85},
		UserID:   1,
	})
	if err != nil {
		t.Fatalf("Normalize single: %v", err)
	}
	if single.Mode != request.ModeSingle {
		t.Fatalf("mode = %s", single.Mode)
	}
	if single.InputFormats[0] != "png" || single.Params.OutputFormat != "webp" {
		t.Fatalf("formats = %v -> %s", single.InputFormats, single.Params.OutputFormat)
	}

	multi, err := n.Normalize(request.Request{
		Category: media.CategoryDocument,
		Sources:  []string{" /in/a.docx ", "s3://bucket/docs/b.odt"},
		Params:   strategy.Params{OutputFormat: "pdf"},
		UserID:   1,
	})
	if err != nil {
		t.Fatalf("Normalize multi: %v", err)
	}
	if multi.Mode != request.ModeMulti || len(multi.Sources) != 2 {
		t.Fatalf("mode = %s sources = %v", multi.Mode, multi.Sources)
	}
	if multi.InputFormats[1] != "odt" {
		t.Fatalf("remote format = %q", multi.InputFormats[1])
	}
}

func TestNormalizeRejectsEmptyBatch(t *testing.T) {
	_, err := newNormalizer().Normalize(request.Request{
		Category: media.CategoryImage,
		Sources:  []string{"", "  "},
		Params:   strategy.Params{OutputFormat: "png"},
		UserID:   1,
	})
	if !errors.Is(err, request.ErrEmptyBatch) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty batch validation error, got %v", err)
	}
}

func TestNormalizeRejectsBlankEntry(t *testing.T) {
	_, err := newNormalizer().Normalize(request.Request{
		Category: media.CategoryImage,
		Sources:  []string{"/in/a.png", "  ", "/in/b.png"},
		Params:   strategy.Params{OutputFormat: "png"},
		UserID:   1,
	})
	if err == nil || errors.Is(err, request.ErrEmptyBatch) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected blank entry validation error, got %v", err)
	}
}

func TestNormalizeRejectsBatchAboveCeiling(t *testing.T) {
	_, err := newNormalizer().Normalize(request.Request{
		Category: media.CategoryImage,
		Sources:  paths(6, "png"),
		Params:   strategy.Params{OutputFormat: "png"},
		UserID:   1,
	})
	var tooLarge *request.BatchTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected BatchTooLargeError, got %v", err)
	}
	if tooLarge.Count != 6 || tooLarge.Limit != 5 {
		t.Fatalf("unexpected error fields: %+v", tooLarge)
	}
	if !services.IsClientError(err) || !request.IsBatchTooLarge(err) {
		t.Fatal("batch too large must be a client error")
	}
}

func TestNormalizeCeilingsPerCategory(t *testing.T) {
	n := newNormalizer()
	cases := []struct {
		category media.Category
		ext      string
		count    int
		kind     string
		ok       bool
	}{
		{media.CategoryImage, "png", 5, "", true},
		{media.CategoryVideoAudio, "mp4", 20, "", true},
		{media.CategoryVideoAudio, "mp4", 21, "", false},
		{media.CategoryGif, "gif", 50, "", true},
		{media.CategoryDocument, "docx", 51, "", false},
		{media.CategoryBackgroundRemoval, "png", 6, "", false},
		{media.CategoryCompression, "png", 5, request.KindImage, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s-%d", tc.category, tc.count), func(t *testing.T) {
			_, err := n.Normalize(request.Request{
				Category: tc.category,
				Kind:     tc.kind,
				Sources:  paths(tc.count, tc.ext),
				Params:   strategy.Params{OutputFormat: "png"},
				UserID:   1,
			})
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !request.IsBatchTooLarge(err) {
				t.Fatalf("expected batch too large, got %v", err)
			}
		})
	}
}

func TestNormalizeCompressionKind(t *testing.T) {
	n := newNormalizer()
	_, err := n.Normalize(request.Request{
		Category: media.CategoryCompression,
		Kind:     request.KindVideo,
		Sources:  []string{"/in/song.mp3"},
		UserID:   1,
	})
	var unsupported *strategy.UnsupportedCombinationError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected unsupported combination, got %v", err)
	}

	_, err = n.Normalize(request.Request{
		Category: media.CategoryCompression,
		Kind:     "pdf",
		Sources:  []string{"/in/doc.pdf"},
		UserID:   1,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}

	batch, err := n.Normalize(request.Request{
		Category: media.CategoryCompression,
		Kind:     "Audio",
		Sources:  []string{"/in/song.mp3"},
		UserID:   1,
	})
	if err != nil || batch.Kind != request.KindAudio {
		t.Fatalf("Normalize audio = %+v, %v", batch, err)
	}
}

func TestNormalizeRequiresOutputFormatAndUser(t *testing.T) {
	n := newNormalizer()
	if _, err := n.Normalize(request.Request{Category: media.CategoryImage, Sources: []string{"/a.png"}, UserID: 1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing output format error, got %v", err)
	}
	if _, err := n.Normalize(request.Request{Category: media.CategoryBackgroundRemoval, Sources: []string{"/a.png"}}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing user error, got %v", err)
	}
	if _, err := n.Normalize(request.Request{Category: media.CategoryBackgroundRemoval, Sources: []string{"/a.png"}, UserID: 2}); err != nil {
		t.Fatalf("background removal needs no output format: %v", err)
	}
}

func TestConvertCategory(t *testing.T) {
	for name, want := range map[string]media.Category{
		"image":       media.CategoryImage,
		"video_audio": media.CategoryVideoAudio,
		"video-audio": media.CategoryVideoAudio,
		"gif":         media.CategoryGif,
		"document":    media.CategoryDocument,
	} {
		got, err := request.ConvertCategory(name)
		if err != nil || got != want {
			t.Fatalf("ConvertCategory(%q) = %v, %v", name, got, err)
		}
	}
	for _, name := range []string{"remove_background", "compress", "nope"} {
		if _, err := request.ConvertCategory(name); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("ConvertCategory(%q) expected not found, got %v", name, err)
		}
	}
}
