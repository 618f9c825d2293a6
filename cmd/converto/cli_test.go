package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"converto/internal/config"
	"converto/internal/deps"
	"converto/internal/history"
	"converto/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
	srcDir     string
	outDir     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(), testsupport.WithTimeouts(10))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{
		cfg:        cfg,
		configPath: configPath,
		srcDir:     filepath.Join(base, "src"),
		outDir:     filepath.Join(base, "out"),
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) records(t *testing.T) []history.Record {
	t.Helper()
	store, err := history.Open(e.cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	recs, err := store.ListAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	return recs
}

func TestConvertSingleFileExportsArtifact(t *testing.T) {
	env := newCLIEnv(t)
	src := testsupport.WriteSources(t, env.srcDir, 100, "photo.png")[0]

	out, err := env.run(t, "convert", "--to", "webp", "--out", env.outDir, "--user", "7", src)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	exported := filepath.Join(env.outDir, "photo_converted.webp")
	info, err := os.Stat(exported)
	if err != nil || info.Size() != 100 {
		t.Fatalf("exported artifact: %v %v", info, err)
	}
	if !strings.Contains(out, "1 succeeded, 0 failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	recs := env.records(t)
	if len(recs) != 1 || recs[0].UserID != 7 || recs[0].Status != history.StatusCompleted {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[0].RequestID != "cli" {
		t.Fatalf("request id = %q", recs[0].RequestID)
	}
}

func TestConvertBatchWritesArchive(t *testing.T) {
	env := newCLIEnv(t)
	paths := testsupport.WriteSources(t, env.srcDir, 50, "a.png", "b.png")
	paths = append(paths, filepath.Join(env.srcDir, "missing.png"))

	args := append([]string{"convert", "--to", "png", "--out", env.outDir}, paths...)
	out, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 succeeded, 1 failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	zr, err := zip.OpenReader(filepath.Join(env.outDir, "converted_image_png.zip"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 archive entries, got %d", len(zr.File))
	}
	if recs := env.records(t); len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func TestConvertRejectsOversizedBatch(t *testing.T) {
	env := newCLIEnv(t)
	paths := testsupport.WriteSources(t, env.srcDir, 10, "1.png", "2.png", "3.png", "4.png", "5.png", "6.png")

	args := append([]string{"convert", "--to", "png", "--out", env.outDir}, paths...)
	if _, err := env.run(t, args...); err == nil || !strings.Contains(err.Error(), "exceeds the limit") {
		t.Fatalf("expected batch limit error, got %v", err)
	}
	if recs := env.records(t); len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

func TestRunExitCodes(t *testing.T) {
	env := newCLIEnv(t)
	oversized := testsupport.WriteSources(t, env.srcDir, 10, "1.png", "2.png", "3.png", "4.png", "5.png", "6.png")
	broken := testsupport.WriteSources(t, env.srcDir, 10, "broken.png")

	convert := func(paths ...string) []string {
		return append([]string{"--config", env.configPath, "convert", "--to", "png", "--out", env.outDir}, paths...)
	}
	if code := run(convert(oversized...)); code != exitRejected {
		t.Fatalf("oversized batch exit code = %d, want %d", code, exitRejected)
	}
	if code := run(convert(broken...)); code != exitFailure {
		t.Fatalf("failed batch exit code = %d, want %d", code, exitFailure)
	}
}

func TestCompressAndHistoryTable(t *testing.T) {
	env := newCLIEnv(t)
	src := testsupport.WriteSources(t, env.srcDir, 40, "shot.png")[0]

	if out, err := env.run(t, "compress", "--kind", "image", "--level", "high", "--out", env.outDir, src); err != nil {
		t.Fatalf("compress: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(env.outDir, "shot_compressed.png")); err != nil {
		t.Fatalf("compressed artifact missing: %v", err)
	}

	out, err := env.run(t, "history", "--service", "2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"shot.png", "Compress", "high", "completed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "history", "--json", "--service", "1")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var recs []history.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil || len(recs) != 0 {
		t.Fatalf("expected empty json list, got %q (%v)", out, err)
	}
}

func TestDepsJSON(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "deps", "--json")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	var statuses []deps.Status
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(statuses) != 5 {
		t.Fatalf("expected 5 statuses, got %d", len(statuses))
	}
	for _, s := range statuses[:4] {
		if !s.Available {
			t.Fatalf("fake tool %s should be available: %+v", s.Name, s)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(t.TempDir(), "converto", "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when config exists")
	}

	shown, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(shown, "test-token") {
		t.Fatalf("token not redacted:\n%s", shown)
	}
	if !strings.Contains(shown, "[engine]") {
		t.Fatalf("unexpected config output:\n%s", shown)
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := categoryLabel("video_audio"); got != "Video Audio" {
		t.Fatalf("categoryLabel = %q", got)
	}
	if got := formatBytes(1536); got != "1.5 KiB" {
		t.Fatalf("formatBytes = %q", got)
	}
}
