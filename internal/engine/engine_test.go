package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"converto/internal/config"
	"converto/internal/engine"
	"converto/internal/logging"
	"converto/internal/probe"
	"converto/internal/scratch"
	"converto/internal/services"
	"converto/internal/sources"
	"converto/internal/strategy"
	"converto/internal/testsupport"
	"converto/internal/transform"
)

func pngToWebp() map[string]strategy.Strategy {
	return map[string]strategy.Strategy{
		"png": {Tool: strategy.ToolMagick, InputFormat: "png", OutputFormat: "webp", Args: []string{"{input}", "-quality", "85", "{output}"}},
	}
}

type harness struct {
	cfg     *config.Config
	session *scratch.Session
	engine  *engine.Engine
	srcDir  string
}

func newHarness(t *testing.T, opts ...engine.Option) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(), testsupport.WithWorkers(3))
	session, err := scratch.NewManager(cfg.Paths.ScratchDir, logging.NewNop()).Open()
	if err != nil {
		t.Fatalf("open scratch: %v", err)
	}
	t.Cleanup(session.Release)
	runner := transform.NewRunner(cfg.Tools)
	eng := engine.New(cfg.Engine.Workers, runner, sources.NewLocalizer(nil, nil), opts...)
	return &harness{cfg: cfg, session: session, engine: eng, srcDir: filepath.Join(testsupport.BaseDir(cfg), "src")}
}

func (h *harness) batch(paths []string, timeout time.Duration) engine.Batch {
	return engine.Batch{Sources: paths, Strategies: pngToWebp(), Timeout: timeout, Session: h.session}
}

func byIndex(outcomes []engine.Outcome) map[int]engine.Outcome {
	m := make(map[int]engine.Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Index] = o
	}
	return m
}

func TestRunBatchWithMissingSource(t *testing.T) {
	h := newHarness(t)
	paths := testsupport.WriteSources(t, h.srcDir, 128, "a.png", "b.png")
	paths = append(paths, filepath.Join(h.srcDir, "missing.png"))

	outcomes := h.engine.Run(context.Background(), h.batch(paths, 10*time.Second))
	if len(outcomes) != len(paths) {
		t.Fatalf("expected %d outcomes, got %d", len(paths), len(outcomes))
	}
	got := byIndex(outcomes)
	for _, idx := range []int{0, 1} {
		o := got[idx]
		if !o.Success || o.OutputSize != 128 || o.OriginalSize != 128 || o.OutputFormat != "webp" {
			t.Fatalf("item %d: unexpected outcome %+v", idx, o)
		}
		if _, err := os.Stat(o.Output); err != nil {
			t.Fatalf("item %d: output missing: %v", idx, err)
		}
	}
	failed := got[2]
	if failed.Success || failed.Output != "" || failed.OriginalSize != 0 {
		t.Fatalf("unexpected failed outcome: %+v", failed)
	}
	if !errors.Is(failed.Err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", failed.Err)
	}
}

func TestRunSingleItemInline(t *testing.T) {
	h := newHarness(t)
	paths := testsupport.WriteSources(t, h.srcDir, 64, "solo.png")

	outcomes := h.engine.Run(context.Background(), h.batch(paths, 10*time.Second))
	if len(outcomes) != 1 || !outcomes[0].Success {
		t.Fatalf("expected one successful outcome, got %+v", outcomes)
	}
	if filepath.Base(outcomes[0].Output) != "solo.webp" {
		t.Fatalf("unexpected output name: %s", outcomes[0].Output)
	}
}

func TestRunTimeoutDoesNotAffectSiblings(t *testing.T) {
	h := newHarness(t)
	paths := testsupport.WriteSources(t, h.srcDir, 32, "ok-1.png", "slow.png", "ok-2.png")

	start := time.Now()
	outcomes := h.engine.Run(context.Background(), h.batch(paths, 300*time.Millisecond))
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("batch took too long: %s", elapsed)
	}
	got := byIndex(outcomes)
	slow := got[1]
	if slow.Success || slow.Output != "" || !errors.Is(slow.Err, services.ErrTimeout) {
		t.Fatalf("expected timed out outcome, got %+v", slow)
	}
	if slow.OriginalSize != 32 {
		t.Fatalf("failed outcome should carry original size, got %d", slow.OriginalSize)
	}
	if !got[0].Success || !got[2].Success {
		t.Fatalf("siblings should succeed: %+v %+v", got[0], got[2])
	}
}

func TestRunDiscardsPartialAndEmptyOutputs(t *testing.T) {
	h := newHarness(t)
	paths := testsupport.WriteSources(t, h.srcDir, 16, "broken.png", "empty.png")

	outcomes := h.engine.Run(context.Background(), h.batch(paths, 10*time.Second))
	for _, o := range outcomes {
		if o.Success {
			t.Fatalf("expected failure, got %+v", o)
		}
		if !errors.Is(o.Err, services.ErrExternalTool) {
			t.Fatalf("expected tool error, got %v", o.Err)
		}
	}
	entries, err := filepath.Glob(filepath.Join(h.session.Dir(), "item-*", "*.webp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial outputs to be discarded, found %v", entries)
	}
}

func TestRunMissingStrategyFailsItem(t *testing.T) {
	h := newHarness(t)
	paths := testsupport.WriteSources(t, h.srcDir, 16, "doc.txt")

	outcomes := h.engine.Run(context.Background(), h.batch(paths, time.Second))
	if len(outcomes) != 1 || outcomes[0].Success || !errors.Is(outcomes[0].Err, services.ErrValidation) {
		t.Fatalf("unexpected outcome: %+v", outcomes)
	}
}

type countingRunner struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	panicOn string
}

func (r *countingRunner) Run(ctx context.Context, inv transform.Invocation) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		prev := r.maxSeen.Load()
		if n <= prev || r.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if r.panicOn != "" && filepath.Base(inv.Input) == r.panicOn {
		panic("tool wrapper exploded")
	}
	time.Sleep(20 * time.Millisecond)
	return os.WriteFile(inv.Output, []byte("ok"), 0o644)
}

func TestRunBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session, err := scratch.NewManager(cfg.Paths.ScratchDir, nil).Open()
	if err != nil {
		t.Fatalf("open scratch: %v", err)
	}
	defer session.Release()
	paths := testsupport.WriteSources(t, filepath.Join(testsupport.BaseDir(cfg), "src"), 8,
		"1.png", "2.png", "3.png", "4.png", "5.png", "6.png", "7.png", "8.png")

	runner := &countingRunner{panicOn: "5.png"}
	eng := engine.New(2, runner, sources.NewLocalizer(nil, nil))
	outcomes := eng.Run(context.Background(), engine.Batch{Sources: paths, Strategies: pngToWebp(), Session: session})

	if len(outcomes) != len(paths) {
		t.Fatalf("expected %d outcomes, got %d", len(paths), len(outcomes))
	}
	if peak := runner.maxSeen.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent items, saw %d", peak)
	}
	seen := make(map[int]bool)
	for _, o := range outcomes {
		if seen[o.Index] {
			t.Fatalf("duplicate outcome for index %d", o.Index)
		}
		seen[o.Index] = true
		wantSuccess := filepath.Base(o.Source) != "5.png"
		if o.Success != wantSuccess {
			t.Fatalf("unexpected outcome for %s: %+v", o.Source, o)
		}
	}
}

type rejectVerifier struct {
	mu    sync.Mutex
	calls int
}

func (v *rejectVerifier) Verify(ctx context.Context, path, format string) (probe.Report, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return probe.Report{}, services.Wrap(services.ErrExternalTool, "probe", "decode", "corrupt", nil)
}

func TestRunVerifierFailureDiscardsOutput(t *testing.T) {
	verifier := &rejectVerifier{}
	h := newHarness(t, engine.WithVerifier(verifier))
	paths := testsupport.WriteSources(t, h.srcDir, 16, "a.png")

	outcomes := h.engine.Run(context.Background(), h.batch(paths, 10*time.Second))
	if outcomes[0].Success || verifier.calls != 1 {
		t.Fatalf("expected verifier rejection, got %+v (calls=%d)", outcomes[0], verifier.calls)
	}
	if _, err := os.Stat(filepath.Join(h.session.Dir(), "item-0", "a.webp")); !os.IsNotExist(err) {
		t.Fatalf("expected rejected output removed, err=%v", err)
	}
}

type stallingVerifier struct{}

func (stallingVerifier) Verify(ctx context.Context, path, format string) (probe.Report, error) {
	<-ctx.Done()
	return probe.Report{}, ctx.Err()
}

func TestRunItemDeadlineCoversVerification(t *testing.T) {
	h := newHarness(t, engine.WithVerifier(stallingVerifier{}))
	paths := testsupport.WriteSources(t, h.srcDir, 16, "a.png")

	start := time.Now()
	outcomes := h.engine.Run(context.Background(), h.batch(paths, 300*time.Millisecond))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("stalled verification held the item for %s", elapsed)
	}
	if outcomes[0].Success || !errors.Is(outcomes[0].Err, services.ErrTimeout) {
		t.Fatalf("expected timed out outcome, got %+v", outcomes[0])
	}
}

func TestPartition(t *testing.T) {
	ok, failed := engine.Partition([]engine.Outcome{{Index: 0, Success: true}, {Index: 1}, {Index: 2, Success: true}})
	if len(ok) != 2 || len(failed) != 1 || failed[0].Index != 1 {
		t.Fatalf("unexpected partition: %+v %+v", ok, failed)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if engine.DefaultWorkers() < 1 {
		t.Fatal("default workers must be at least one")
	}
	if got := engine.New(0, nil, nil).Workers(); got != engine.DefaultWorkers() {
		t.Fatalf("expected default worker count, got %d", got)
	}
}
