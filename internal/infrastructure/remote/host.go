package remote

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// DefaultBackupRoot is created under the remote user's home directory.
const DefaultBackupRoot = "file-organization-backups"

// Host implements the filesystem collaborators for a remote environment by
// running shell commands over a Runner.
type Host struct {
	session
	root       string
	env        organize.Environment
	ignore     []glob.Glob
	layout     []string
	backupRoot string
	dryRun     bool
	logger     ports.Logger
	now        func() time.Time
}

// Option configures a Host.
type Option func(*Host) error

// WithEnvironment tags scanned files and backups with env.
func WithEnvironment(env organize.Environment) Option {
	return func(h *Host) error {
		h.env = env
		return nil
	}
}

// WithIgnore skips files whose name matches any of patterns.
func WithIgnore(patterns []string) Option {
	return func(h *Host) error {
		for _, raw := range patterns {
			g, err := glob.Compile(raw)
			if err != nil {
				return fmt.Errorf("compile ignore pattern %q: %w", raw, err)
			}
			h.ignore = append(h.ignore, g)
		}
		return nil
	}
}

// WithLayout sets the directories CreateEnvironmentStructure creates.
func WithLayout(dirs []string) Option {
	return func(h *Host) error {
		h.layout = append([]string(nil), dirs...)
		return nil
	}
}

// WithBackupRoot sets where backups go. Relative roots resolve against
// the remote home directory.
func WithBackupRoot(dir string) Option {
	return func(h *Host) error {
		if dir != "" {
			h.backupRoot = dir
		}
		return nil
	}
}

// WithDryRun makes every mutating collaborator plan without running
// commands that change the host.
func WithDryRun(dryRun bool) Option {
	return func(h *Host) error {
		h.dryRun = dryRun
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(h *Host) error {
		if logger != nil {
			h.logger = logger
		}
		return nil
	}
}

// WithClock overrides the clock used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Host) error {
		if now != nil {
			h.now = now
		}
		return nil
	}
}

// NewHost returns a Host operating in root on the machine cfg points at.
func NewHost(runner Runner, cfg SSHConfig, root string, opts ...Option) (*Host, error) {
	if runner == nil {
		return nil, fmt.Errorf("remote runner is required")
	}
	if root == "" {
		return nil, fmt.Errorf("remote root is required")
	}
	h := &Host{
		session:    session{runner: runner, host: cfg.Host},
		root:       path.Clean(root),
		env:        organize.EnvironmentEC2,
		layout:     organize.TargetDirectories(organize.DefaultRules()),
		backupRoot: DefaultBackupRoot,
		logger:     logging.NewNoOpLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	h.logger = h.logger.With("layer", "infrastructure", "component", "remote", "environment", h.env, "host", cfg.Host)
	return h, nil
}

// Root returns the remote directory the host operates in.
func (h *Host) Root() string {
	return h.root
}

// TestConnection runs a trivial command to prove the host is reachable.
func (h *Host) TestConnection(ctx context.Context) error {
	out, err := h.exec(ctx, "echo ok")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "ok" {
		return fmt.Errorf("unexpected probe output from %s: %q", h.host, strings.TrimSpace(out))
	}
	h.logger.Debug(ctx, "connection verified")
	return nil
}

// DetectFlatFiles lists the regular, non-hidden files directly under root.
func (h *Host) DetectFlatFiles(ctx context.Context, env organize.Environment) ([]organize.FileInfo, error) {
	script := fmt.Sprintf(`find %s -maxdepth 1 -type f ! -name '.*' -printf '%%p\t%%s\t%%m\t%%T@\n'`, quote(h.root))
	out, err := h.exec(ctx, script)
	if err != nil {
		return nil, err
	}

	var files []organize.FileInfo
	for _, line := range lines(out) {
		file, err := parseFindLine(line)
		if err != nil {
			h.logger.Warn(ctx, "unparseable find output", "line", line, "error", err)
			continue
		}
		if h.ignored(file.Name) {
			continue
		}
		file.Environment = env
		file.RelativePath = file.Name
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	h.logger.Info(ctx, "flat files detected", "root", h.root, "files", len(files))
	return files, nil
}

func parseFindLine(line string) (organize.FileInfo, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return organize.FileInfo{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return organize.FileInfo{}, fmt.Errorf("size: %w", err)
	}
	mode, err := organize.ParseMode(fields[2])
	if err != nil {
		return organize.FileInfo{}, err
	}
	stamp, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return organize.FileInfo{}, fmt.Errorf("mtime: %w", err)
	}
	sec := int64(stamp)
	name := path.Base(fields[0])
	return organize.FileInfo{
		Path:         fields[0],
		Name:         name,
		Extension:    path.Ext(name),
		Size:         size,
		Permissions:  organize.FormatMode(mode),
		LastModified: time.Unix(sec, int64((stamp-float64(sec))*1e9)).UTC(),
	}, nil
}

func (h *Host) ignored(name string) bool {
	for _, g := range h.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (h *Host) relative(p string) string {
	if rel := strings.TrimPrefix(p, h.root+"/"); rel != p {
		return rel
	}
	return path.Base(p)
}
