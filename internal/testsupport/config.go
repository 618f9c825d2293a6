package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"converto/internal/config"
)

// FakeToolScript is a stand-in transform executable. It copies the first
// argument naming an existing file to its last argument, and changes
// behaviour when the input name contains a marker:
//
//	slow    sleeps well past any test timeout
//	empty   writes a zero-byte output
//	broken  writes partial output then exits non-zero
const FakeToolScript = `
for last; do :; done
out="$last"
in=""
for arg; do
  if [ "$arg" != "$out" ] && [ -f "$arg" ]; then in="$arg"; break; fi
done
[ -n "$in" ] || { echo "fake tool: no input" >&2; exit 2; }
case "$in" in
  *slow*) sleep 30 ;;
  *empty*) : > "$out" ;;
  *broken*) echo partial > "$out"; echo "fake tool: cannot decode $in" >&2; exit 1 ;;
  *) cp "$in" "$out" ;;
esac
`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.Tokens = map[string]int64{"test-token": 1}
	cfgVal.Engine.Workers = 2
	cfgVal.Engine.VerifyOutputs = false
	cfgVal.Events.AMQPURL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithToken maps a bearer token to a user id.
func WithToken(token string, userID int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Tokens[token] = userID
	}
}

// WithWorkers overrides the engine pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Workers = n
	}
}

// WithTimeouts sets every per-category timeout to seconds.
func WithTimeouts(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.ImageTimeout = seconds
		b.cfg.Engine.VideoTimeout = seconds
		b.cfg.Engine.GifTimeout = seconds
		b.cfg.Engine.DocumentTimeout = seconds
		b.cfg.Engine.BackgroundTimeout = seconds
	}
}

// WithFakeTools points every configured tool at FakeToolScript.
func WithFakeTools() ConfigOption {
	return WithToolScript("fake-tool", FakeToolScript)
}

// WithToolScript points every configured tool at a shell script with body.
func WithToolScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		path := writeScript(b.t, filepath.Join(b.baseDir, "tools"), name, body)
		b.cfg.Tools.FFmpeg = path
		b.cfg.Tools.Magick = path
		b.cfg.Tools.Soffice = path
		b.cfg.Tools.Rembg = path
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// makes their directory the whole PATH, so only the stubs resolve. If names
// is empty, the default external tools are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "magick", "soffice", "rembg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeScript(b.t, binDir, name, "exit 0")
		}
		b.t.Setenv("PATH", binDir)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}

// WriteScript writes an executable shell script and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	return writeScript(t, dir, name, body)
}

func writeScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
