package aggregate_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"converto/internal/aggregate"
	"converto/internal/engine"
	"converto/internal/media"
	"converto/internal/testsupport"
)

func success(t *testing.T, dir string, index int, name, format string, orig, size int64) engine.Outcome {
	t.Helper()
	out := filepath.Join(dir, "out", filepath.Base(name)+"."+format)
	testsupport.WriteFile(t, out, size)
	return engine.Outcome{
		Index: index, Source: name, SourceName: filepath.Base(name), Output: out,
		OutputSize: size, OriginalSize: orig, Success: true, OutputFormat: format,
	}
}

func TestBuildAllFailed(t *testing.T) {
	_, err := aggregate.Build([]engine.Outcome{{Index: 0}, {Index: 1}}, aggregate.Options{Category: media.CategoryImage})
	if !errors.Is(err, aggregate.ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
}

func TestBuildSingleArtifact(t *testing.T) {
	dir := t.TempDir()
	o := success(t, dir, 0, "/in/photo.png", "webp", 500, 200)

	resp, err := aggregate.Build([]engine.Outcome{o}, aggregate.Options{Category: media.CategoryImage, OutputFormat: "webp", SingleItem: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if resp.IsArchive() || resp.MediaType != "image/webp" {
		t.Fatalf("expected single webp artifact, got %+v", resp)
	}
	if resp.DownloadName != "photo_converted.webp" || resp.TotalFiles != 1 || resp.FailedFiles != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBuildForcedArchiveForSingleItem(t *testing.T) {
	dir := t.TempDir()
	o := success(t, dir, 0, "/in/photo.png", "png", 500, 200)
	resp, err := aggregate.Build([]engine.Outcome{o}, aggregate.Options{Category: media.CategoryBackgroundRemoval, OutputFormat: "png", SingleItem: true, ForceArchive: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !resp.IsArchive() || resp.Entries[0].Name != "photo_removedbg.png" {
		t.Fatalf("expected archive with removedbg entry, got %+v", resp)
	}
	if resp.DownloadName != "converted_remove_background_png.zip" {
		t.Fatalf("unexpected archive name %q", resp.DownloadName)
	}
}

func TestBuildArchivePartialSuccess(t *testing.T) {
	dir := t.TempDir()
	outcomes := []engine.Outcome{
		success(t, dir, 1, "/b/cat.png", "png", 300, 100),
		{Index: 2, Source: "/c/missing.png", SourceName: "missing.png", OriginalSize: 0},
		success(t, filepath.Join(dir, "x"), 0, "/a/cat.png", "png", 700, 250),
	}

	resp, err := aggregate.Build(outcomes, aggregate.Options{Category: media.CategoryImage, OutputFormat: "png"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !resp.IsArchive() || len(resp.Entries) != 2 {
		t.Fatalf("expected archive with two entries, got %+v", resp)
	}
	if resp.TotalFiles != 2 || resp.FailedFiles != 1 {
		t.Fatalf("unexpected counters: %+v", resp)
	}
	if resp.OriginalBytes != 1000 || resp.OutputBytes != 350 {
		t.Fatalf("totals must cover successes only: %+v", resp)
	}
	if resp.Entries[0].Name != "cat_converted.png" || resp.Entries[1].Name != "cat-2_converted.png" {
		t.Fatalf("expected deduplicated names in input order, got %q %q", resp.Entries[0].Name, resp.Entries[1].Name)
	}
	if resp.DownloadName != "converted_image_png.zip" || resp.MediaType != "application/zip" {
		t.Fatalf("unexpected archive metadata: %+v", resp)
	}

	var buf bytes.Buffer
	if err := aggregate.WriteArchive(&buf, resp.Entries); err != nil {
		t.Fatalf("WriteArchive returned error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 archive entries, got %d", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if int64(len(data)) != resp.Entries[0].Size {
		t.Fatalf("entry size mismatch: %d vs %d", len(data), resp.Entries[0].Size)
	}
}

func TestDeduplicationAvoidsExistingNumberedStems(t *testing.T) {
	dir := t.TempDir()
	outcomes := []engine.Outcome{
		success(t, filepath.Join(dir, "1"), 0, "cat-2.png", "jpg", 1, 1),
		success(t, filepath.Join(dir, "2"), 1, "cat.png", "jpg", 1, 1),
		success(t, filepath.Join(dir, "3"), 2, "cat.png", "jpg", 1, 1),
	}
	resp, err := aggregate.Build(outcomes, aggregate.Options{Category: media.CategoryImage, OutputFormat: "jpg"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range resp.Entries {
		if seen[e.Name] {
			t.Fatalf("duplicate archive name %q", e.Name)
		}
		seen[e.Name] = true
	}
}

func TestWriteArchiveMissingFile(t *testing.T) {
	err := aggregate.WriteArchive(io.Discard, []aggregate.Entry{{Name: "x.png", Path: filepath.Join(t.TempDir(), "nope")}})
	if err == nil {
		t.Fatal("expected error for missing entry file")
	}
}

func TestCompressionRatio(t *testing.T) {
	tests := []struct {
		orig, out int64
		want      string
	}{
		{1000, 575, "42.50%"},
		{100, 100, "0.00%"},
		{0, 10, ""},
	}
	for _, tc := range tests {
		if got := aggregate.CompressionRatio(tc.orig, tc.out); got != tc.want {
			t.Fatalf("CompressionRatio(%d,%d) = %q want %q", tc.orig, tc.out, got, tc.want)
		}
	}
}
