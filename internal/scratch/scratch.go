// Package scratch hands out request-scoped working directories and owns
// their cleanup.
//
// A Session is opened per request. Every batch item gets its own directory
// so no two items share a mutable file. Discard and Release are idempotent:
// each path is deleted at most once, and deletion failures are logged, never
// returned.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"converto/internal/logging"
)

// Manager creates sessions under a root directory.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager constructs a manager rooted at root.
func NewManager(root string, logger *slog.Logger) *Manager {
	return &Manager{root: root, logger: logging.NewComponentLogger(logger, "scratch")}
}

// Root returns the directory sessions are created in.
func (m *Manager) Root() string { return m.root }

// Check ensures the root exists and is writable.
func (m *Manager) Check() error {
	if strings.TrimSpace(m.root) == "" {
		return errors.New("scratch root not configured")
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("create scratch root: %w", err)
	}
	if err := unix.Access(m.root, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("scratch root %s not writable: %w", m.root, err)
	}
	return nil
}

// Open creates a fresh session directory.
func (m *Manager) Open() (*Session, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch session: %w", err)
	}
	return &Session{
		id:        id,
		dir:       dir,
		logger:    m.logger.With(logging.String("session", id)),
		discarded: make(map[string]struct{}),
	}, nil
}

// Session is one request's scratch space.
type Session struct {
	id     string
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	discarded map[string]struct{}
	released  bool
}

// Item is the private layout for one batch item.
type Item struct {
	Dir       string
	SourceDir string
	WorkDir   string
	Output    string
}

func (s *Session) ID() string  { return s.id }
func (s *Session) Dir() string { return s.dir }

// Item allocates the directory tree for the batch item at index. The output
// path is "<item>/<stem>.<format>", which is where soffice writes when given
// --outdir.
func (s *Session) Item(index int, sourceName, outputFormat string) (Item, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return Item{}, errors.New("scratch session already released")
	}
	dir := filepath.Join(s.dir, "item-"+strconv.Itoa(index))
	item := Item{
		Dir:       dir,
		SourceDir: filepath.Join(dir, "src"),
		WorkDir:   filepath.Join(dir, "work"),
	}
	for _, d := range []string{item.SourceDir, item.WorkDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Item{}, fmt.Errorf("create item dir: %w", err)
		}
	}
	item.Output = filepath.Join(dir, Stem(sourceName)+"."+outputFormat)
	return item, nil
}

// CreateFile creates a file directly in the session directory.
func (s *Session) CreateFile(name string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, errors.New("scratch session already released")
	}
	return os.Create(filepath.Join(s.dir, filepath.Base(name)))
}

// Discard removes a single path. Repeated calls for the same path, or calls
// after Release, do nothing.
func (s *Session) Discard(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	if _, done := s.discarded[path]; done {
		s.mu.Unlock()
		return
	}
	s.discarded[path] = struct{}{}
	s.mu.Unlock()

	if err := os.RemoveAll(path); err != nil {
		logging.WarnWithContext(s.logger, "scratch discard failed", "scratch_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
			logging.String(logging.FieldImpact, "temporary file left on disk"),
		)
	}
}

// Release deletes the whole session tree exactly once.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		logging.WarnWithContext(s.logger, "scratch release failed", "scratch_cleanup_failed",
			logging.String("path", s.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
			logging.String(logging.FieldImpact, "temporary files left on disk"),
		)
		return
	}
	s.logger.Debug("scratch released", logging.String(logging.FieldEventType, "scratch_released"))
}

// Stem returns the base name without its extension, falling back to "file".
func Stem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "file"
	}
	return stem
}
