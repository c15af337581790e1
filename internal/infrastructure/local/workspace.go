package local

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// Workspace implements the filesystem collaborators for one environment
// rooted at a directory. Everything goes through afero so tests can run
// on an in-memory filesystem.
type Workspace struct {
	fs        afero.Fs
	root      string
	env       organize.Environment
	ignore    []glob.Glob
	layout    []string
	backupDir string
	dryRun    bool
	logger    ports.Logger
	now       func() time.Time
}

// Option configures a Workspace.
type Option func(*Workspace) error

// WithEnvironment tags scanned files and backups with env.
func WithEnvironment(env organize.Environment) Option {
	return func(w *Workspace) error {
		w.env = env
		return nil
	}
}

// WithIgnore skips files whose name matches any of patterns.
func WithIgnore(patterns []string) Option {
	return func(w *Workspace) error {
		for _, raw := range patterns {
			g, err := glob.Compile(raw)
			if err != nil {
				return fmt.Errorf("compile ignore pattern %q: %w", raw, err)
			}
			w.ignore = append(w.ignore, g)
		}
		return nil
	}
}

// WithLayout sets the directories CreateEnvironmentStructure creates,
// relative to the target path.
func WithLayout(dirs []string) Option {
	return func(w *Workspace) error {
		w.layout = append([]string(nil), dirs...)
		return nil
	}
}

// WithBackupDir sets where backups go, relative to the root.
func WithBackupDir(dir string) Option {
	return func(w *Workspace) error {
		w.backupDir = dir
		return nil
	}
}

// WithDryRun makes every mutating collaborator plan without writing.
func WithDryRun(dryRun bool) Option {
	return func(w *Workspace) error {
		w.dryRun = dryRun
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(w *Workspace) error {
		if logger != nil {
			w.logger = logger
		}
		return nil
	}
}

// WithClock overrides the clock used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) error {
		if now != nil {
			w.now = now
		}
		return nil
	}
}

// NewWorkspace returns a Workspace over fs rooted at root.
func NewWorkspace(fs afero.Fs, root string, opts ...Option) (*Workspace, error) {
	if fs == nil {
		return nil, fmt.Errorf("workspace filesystem is required")
	}
	if root == "" {
		root = "."
	}
	w := &Workspace{
		fs:        fs,
		root:      filepath.Clean(root),
		env:       organize.EnvironmentLocal,
		layout:    organize.TargetDirectories(organize.DefaultRules()),
		backupDir: organize.DefaultBackupDir,
		logger:    logging.NewNoOpLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	w.logger = w.logger.With("layer", "infrastructure", "component", "local", "environment", w.env)
	return w, nil
}

// Root returns the directory the workspace operates in.
func (w *Workspace) Root() string {
	return w.root
}

// Open reads a file for content sniffing.
func (w *Workspace) Open(path string) (io.ReadCloser, error) {
	return w.fs.Open(path)
}

func (w *Workspace) ignored(name string) bool {
	for _, g := range w.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (w *Workspace) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(filepath.Base(path))
	}
	return filepath.ToSlash(rel)
}
