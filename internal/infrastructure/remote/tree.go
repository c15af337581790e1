package remote

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/envsync"
)

// Tree exposes a remote directory to the sync manager.
type Tree struct {
	session
	root string
	env  organize.Environment
}

var _ envsync.Tree = (*Tree)(nil)

// NewTree returns a sync tree rooted at root on the host cfg points at.
func NewTree(runner Runner, cfg SSHConfig, root string, env organize.Environment) *Tree {
	return &Tree{session: session{runner: runner, host: cfg.Host}, root: path.Clean(root), env: env}
}

func (t *Tree) Environment() organize.Environment { return t.env }

func (t *Tree) Root() string { return t.root }

func (t *Tree) Rooted(root string) envsync.Tree {
	return &Tree{session: t.session, root: path.Clean(root), env: t.env}
}

// List runs a single find. A missing root lists as empty.
func (t *Tree) List(ctx context.Context, skip envsync.SkipFunc) ([]envsync.Entry, error) {
	script := fmt.Sprintf(`[ -d %[1]s ] || exit 0; find %[1]s -mindepth 1 -printf '%%P\t%%y\t%%s\t%%m\n'`, quote(t.root))
	out, err := t.exec(ctx, script)
	if err != nil {
		return nil, err
	}

	var entries []envsync.Entry
	var skipped []string
	for _, line := range lines(out) {
		fields := strings.Split(line, "\t")
		if len(fields) != 4 || (fields[1] != "d" && fields[1] != "f") {
			continue
		}
		rel := fields[0]
		if underAny(rel, skipped) {
			continue
		}
		isDir := fields[1] == "d"
		if skip != nil && skip(rel, isDir) {
			if isDir {
				skipped = append(skipped, rel+"/")
			}
			continue
		}
		mode, err := organize.ParseMode(fields[3])
		if err != nil {
			continue
		}
		entry := envsync.Entry{Path: rel, Mode: mode, IsDir: isDir}
		if !isDir {
			entry.Size, _ = strconv.ParseInt(fields[2], 10, 64)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func underAny(rel string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

func (t *Tree) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	out, err := t.exec(ctx, "cat -- "+quote(t.abs(rel)))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// WriteFile ships data base64 encoded in the command line.
func (t *Tree) WriteFile(ctx context.Context, rel string, data []byte, mode fs.FileMode) error {
	target := t.abs(rel)
	script := fmt.Sprintf("mkdir -p %s && printf '%%s' %s | base64 -d > %s && chmod %s %s",
		quote(path.Dir(target)),
		quote(base64.StdEncoding.EncodeToString(data)),
		quote(target),
		organize.FormatMode(mode),
		quote(target),
	)
	_, err := t.exec(ctx, script)
	return err
}

func (t *Tree) MkdirAll(ctx context.Context, rel string) error {
	_, err := t.exec(ctx, "mkdir -p "+quote(t.abs(rel)))
	return err
}

func (t *Tree) Chmod(ctx context.Context, rel string, mode fs.FileMode) error {
	_, err := t.exec(ctx, fmt.Sprintf("chmod %s %s", organize.FormatMode(mode), quote(t.abs(rel))))
	return err
}

func (t *Tree) abs(rel string) string {
	return path.Join(t.root, rel)
}
