package envsync

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	"github.com/alexisbeaulieu97/reshelf/pkg/diff"
)

const (
	// maxContentCompare bounds the files whose content is hashed during
	// verification.
	maxContentCompare = 1 << 20
	// maxContentDiff bounds the text files that get a rendered diff.
	maxContentDiff = 64 << 10

	actionCopy            = "copy"
	actionOverwrite       = "overwrite"
	actionCreateDirectory = "create_directory"
	actionChmod           = "chmod"
	actionSkipConflict    = "skip_conflict"
)

// Manager reconciles a local tree with a remote one.
type Manager struct {
	local  Tree
	remote Tree
	logger ports.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastSrc  Tree
	lastDst  Tree
	excludes []glob.Glob
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the clock used to time syncs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager over local and remote. VerifyConsistency
// compares the trees used by the last ExecuteSync, or local and remote as
// given when no sync has run.
func NewManager(local, remote Tree, opts ...Option) *Manager {
	m := &Manager{
		local:  local,
		remote: remote,
		logger: logging.NewNoOpLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("layer", "infrastructure", "component", "sync")
	m.lastSrc, m.lastDst = local, remote
	m.excludes = compileExcludes(organize.DefaultSyncExcludes())
	return m
}

// ExecuteSync copies what is missing between src (on the local tree) and
// dst (on the remote tree) in the requested direction. Conflicting files
// are only replaced when OverwriteExisting is set; the local side wins a
// bidirectional conflict.
func (m *Manager) ExecuteSync(ctx context.Context, src, dst string, opts organize.SyncOptions) (organize.SyncResult, error) {
	start := m.now()
	source := m.local
	if src != "" {
		source = m.local.Rooted(src)
	}
	target := m.remote
	if dst != "" {
		target = m.remote.Rooted(dst)
	}
	excludes := compileExcludes(opts.ExcludePatterns)

	m.mu.Lock()
	m.lastSrc, m.lastDst, m.excludes = source, target, excludes
	m.mu.Unlock()

	direction := opts.Direction
	if direction == "" {
		direction = organize.SyncBidirectional
	}
	result := organize.SyncResult{
		SyncID:    "sync-" + uuid.NewString(),
		Direction: direction,
		DryRun:    opts.DryRun,
	}

	skip := skipper(excludes)
	left, err := source.List(ctx, skip)
	if err != nil {
		return result, err
	}
	right, err := target.List(ctx, skip)
	if err != nil {
		return result, err
	}

	s := &syncRun{ctx: ctx, opts: opts, result: &result, logger: m.logger}
	leftIndex, rightIndex := index(left), index(right)

	if direction != organize.SyncRemoteToLocal {
		s.copyMissing(source, target, left, rightIndex)
	}
	if direction != organize.SyncLocalToRemote {
		s.copyMissing(target, source, right, leftIndex)
	}

	from, to, fromIndex, toIndex := source, target, leftIndex, rightIndex
	if direction == organize.SyncRemoteToLocal {
		from, to, fromIndex, toIndex = target, source, rightIndex, leftIndex
	}
	for _, path := range sortedKeys(fromIndex) {
		if ctx.Err() != nil {
			break
		}
		a := fromIndex[path]
		b, ok := toIndex[path]
		if !ok || a.IsDir || b.IsDir {
			continue
		}
		s.reconcile(from, to, a, b)
	}

	result.Statistics.ProcessedFiles = len(unionPaths(leftIndex, rightIndex))
	result.Duration = m.now().Sub(start)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	m.logger.Info(ctx, "sync finished",
		"sync_id", result.SyncID,
		"direction", direction,
		"synced_files", result.Statistics.SyncedFiles,
		"created_directories", result.Statistics.CreatedDirectories,
		"permission_updates", result.Statistics.PermissionUpdates,
		"skipped", result.Statistics.SkippedItems,
		"failed", len(result.Failed),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

type syncRun struct {
	ctx    context.Context
	opts   organize.SyncOptions
	result *organize.SyncResult
	logger ports.Logger
}

func (s *syncRun) record(item organize.SyncedItem, apply func() error) bool {
	if !s.opts.DryRun && apply != nil {
		if err := apply(); err != nil {
			s.result.Failed = append(s.result.Failed, fmt.Sprintf("%s: %v", item.Path, err))
			s.logger.Warn(s.ctx, "sync item failed", "path", item.Path, "action", item.Action, "error", err)
			return false
		}
	}
	s.result.Items = append(s.result.Items, item)
	return true
}

func (s *syncRun) copyMissing(from, to Tree, entries []Entry, present map[string]Entry) {
	for _, entry := range entries {
		if s.ctx.Err() != nil {
			return
		}
		if _, ok := present[entry.Path]; ok {
			continue
		}
		entry := entry
		item := organize.SyncedItem{Path: entry.Path, From: from.Environment(), To: to.Environment(), Size: entry.Size}
		if entry.IsDir {
			item.Action = actionCreateDirectory
			if s.record(item, func() error { return to.MkdirAll(s.ctx, entry.Path) }) {
				s.result.Statistics.CreatedDirectories++
			}
			continue
		}
		item.Action = actionCopy
		if s.record(item, func() error { return copyEntry(s.ctx, from, to, entry) }) {
			s.result.Statistics.SyncedFiles++
			s.result.Statistics.TotalDataSize += entry.Size
		}
	}
}

func (s *syncRun) reconcile(from, to Tree, a, b Entry) {
	if a.Size != b.Size {
		item := organize.SyncedItem{Path: a.Path, From: from.Environment(), To: to.Environment(), Size: a.Size}
		if !s.opts.OverwriteExisting {
			item.Action = actionSkipConflict
			s.record(item, nil)
			s.result.Statistics.SkippedItems++
			return
		}
		item.Action = actionOverwrite
		if s.record(item, func() error { return copyEntry(s.ctx, from, to, a) }) {
			s.result.Statistics.SyncedFiles++
			s.result.Statistics.TotalDataSize += a.Size
		}
		return
	}

	if s.opts.SyncPermissions && a.Mode != b.Mode {
		item := organize.SyncedItem{Path: a.Path, Action: actionChmod, From: from.Environment(), To: to.Environment()}
		if s.record(item, func() error { return to.Chmod(s.ctx, a.Path, a.Mode) }) {
			s.result.Statistics.PermissionUpdates++
		}
	}
}

func copyEntry(ctx context.Context, from, to Tree, entry Entry) error {
	data, err := from.ReadFile(ctx, entry.Path)
	if err != nil {
		return fmt.Errorf("read from %s: %w", from.Environment(), err)
	}
	if err := to.WriteFile(ctx, entry.Path, data, entry.Mode); err != nil {
		return fmt.Errorf("write to %s: %w", to.Environment(), err)
	}
	return nil
}

// VerifyConsistency lists both trees and reports every path that differs.
func (m *Manager) VerifyConsistency(ctx context.Context) (organize.ConsistencyReport, error) {
	m.mu.Lock()
	left, right, excludes := m.lastSrc, m.lastDst, m.excludes
	m.mu.Unlock()

	skip := skipper(excludes)
	leftEntries, err := left.List(ctx, skip)
	if err != nil {
		return organize.ConsistencyReport{}, err
	}
	rightEntries, err := right.List(ctx, skip)
	if err != nil {
		return organize.ConsistencyReport{}, err
	}
	leftIndex, rightIndex := index(leftEntries), index(rightEntries)
	paths := unionPaths(leftIndex, rightIndex)

	report := organize.ConsistencyReport{TotalItems: len(paths)}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		a, inLeft := leftIndex[path]
		b, inRight := rightIndex[path]
		found := m.compare(ctx, left, right, path, a, inLeft, b, inRight)
		if len(found) == 0 {
			report.ConsistentItems++
			continue
		}
		report.Inconsistencies = append(report.Inconsistencies, found...)
	}
	report.IsConsistent = len(report.Inconsistencies) == 0
	report.ListingDiff = listingDiff(left, right, leftEntries, rightEntries)

	m.logger.Info(ctx, "consistency verified",
		"total", report.TotalItems,
		"consistent", report.ConsistentItems,
		"inconsistencies", len(report.Inconsistencies),
	)
	return report, nil
}

func (m *Manager) compare(ctx context.Context, left, right Tree, path string, a Entry, inLeft bool, b Entry, inRight bool) []organize.Inconsistency {
	switch {
	case !inLeft:
		return []organize.Inconsistency{{Path: path, Type: organize.InconsistencyMissing, Details: "missing in " + left.Environment().String()}}
	case !inRight:
		return []organize.Inconsistency{{Path: path, Type: organize.InconsistencyMissing, Details: "missing in " + right.Environment().String()}}
	case a.IsDir != b.IsDir:
		return []organize.Inconsistency{{Path: path, Type: organize.InconsistencyContent, Details: "file on one side, directory on the other"}}
	case a.IsDir:
		return nil
	}

	var found []organize.Inconsistency
	if a.Mode != b.Mode {
		found = append(found, organize.Inconsistency{
			Path:    path,
			Type:    organize.InconsistencyPermission,
			Details: fmt.Sprintf("%s %s, %s %s", left.Environment(), organize.FormatMode(a.Mode), right.Environment(), organize.FormatMode(b.Mode)),
		})
	}
	if a.Size != b.Size {
		return append(found, organize.Inconsistency{
			Path:    path,
			Type:    organize.InconsistencySize,
			Details: fmt.Sprintf("%s %d bytes, %s %d bytes", left.Environment(), a.Size, right.Environment(), b.Size),
		})
	}
	if a.Size > maxContentCompare {
		return found
	}

	before, err := left.ReadFile(ctx, path)
	if err != nil {
		m.logger.Warn(ctx, "content compare skipped", "path", path, "error", err)
		return found
	}
	after, err := right.ReadFile(ctx, path)
	if err != nil {
		m.logger.Warn(ctx, "content compare skipped", "path", path, "error", err)
		return found
	}
	leftSum, rightSum := xxhash.Sum64(before), xxhash.Sum64(after)
	if leftSum == rightSum {
		return found
	}

	mismatch := organize.Inconsistency{
		Path:    path,
		Type:    organize.InconsistencyContent,
		Details: fmt.Sprintf("xxhash %s != %s", strconv.FormatUint(leftSum, 16), strconv.FormatUint(rightSum, 16)),
	}
	if a.Size <= maxContentDiff && diff.IsText(before) && diff.IsText(after) {
		mismatch.Diff = diff.Unified(before, after, left.Environment().String()+"/"+path, right.Environment().String()+"/"+path, diff.DefaultMaxLines)
	}
	return append(found, mismatch)
}

func listingDiff(left, right Tree, leftEntries, rightEntries []Entry) string {
	ud := difflib.UnifiedDiff{
		A:        listing(leftEntries),
		B:        listing(rightEntries),
		FromFile: left.Environment().String() + ":" + left.Root(),
		ToFile:   right.Environment().String() + ":" + right.Root(),
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return text
}

func listing(entries []Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			lines = append(lines, entry.Path+"/\n")
			continue
		}
		lines = append(lines, entry.Path+"\n")
	}
	return lines
}

func compileExcludes(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, raw := range patterns {
		g, err := glob.Compile(raw)
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

// skipper excludes a path when any of its segments, or the whole path,
// matches an exclude pattern.
func skipper(excludes []glob.Glob) SkipFunc {
	return func(rel string, _ bool) bool {
		for _, g := range excludes {
			if g.Match(rel) {
				return true
			}
			for _, segment := range strings.Split(rel, "/") {
				if g.Match(segment) {
					return true
				}
			}
		}
		return false
	}
}

func index(entries []Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		out[entry.Path] = entry
	}
	return out
}

func unionPaths(a, b map[string]Entry) []string {
	seen := make(map[string]Entry, len(a)+len(b))
	for path, entry := range a {
		seen[path] = entry
	}
	for path, entry := range b {
		seen[path] = entry
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
