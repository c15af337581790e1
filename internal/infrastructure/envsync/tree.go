package envsync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// Entry is one file or directory of a Tree listing.
type Entry struct {
	// Path is slash separated and relative to the tree root.
	Path  string
	Size  int64
	Mode  fs.FileMode
	IsDir bool
}

// SkipFunc reports whether a listing should leave rel out. Skipped
// directories are not descended into.
type SkipFunc func(rel string, isDir bool) bool

// Tree is one side of a sync.
type Tree interface {
	Environment() organize.Environment
	Root() string
	// Rooted returns the same tree anchored at root.
	Rooted(root string) Tree
	List(ctx context.Context, skip SkipFunc) ([]Entry, error)
	ReadFile(ctx context.Context, rel string) ([]byte, error)
	WriteFile(ctx context.Context, rel string, data []byte, mode fs.FileMode) error
	MkdirAll(ctx context.Context, rel string) error
	Chmod(ctx context.Context, rel string, mode fs.FileMode) error
}

// FsTree is a Tree over an afero filesystem.
type FsTree struct {
	fs   afero.Fs
	root string
	env  organize.Environment
}

// NewFsTree returns a tree over fs rooted at root.
func NewFsTree(fs afero.Fs, root string, env organize.Environment) *FsTree {
	return &FsTree{fs: fs, root: filepath.Clean(root), env: env}
}

func (t *FsTree) Environment() organize.Environment { return t.env }

func (t *FsTree) Root() string { return t.root }

func (t *FsTree) Rooted(root string) Tree {
	return NewFsTree(t.fs, root, t.env)
}

// List walks the tree in lexical order. A missing root lists as empty.
func (t *FsTree) List(ctx context.Context, skip SkipFunc) ([]Entry, error) {
	exists, err := afero.DirExists(t.fs, t.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", t.root, err)
	}
	if !exists {
		return nil, nil
	}

	var entries []Entry
	err = afero.Walk(t.fs, t.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skip != nil && skip(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entry := Entry{Path: rel, Mode: info.Mode().Perm(), IsDir: info.IsDir()}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil
			}
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (t *FsTree) ReadFile(_ context.Context, rel string) ([]byte, error) {
	return afero.ReadFile(t.fs, t.abs(rel))
}

func (t *FsTree) WriteFile(_ context.Context, rel string, data []byte, mode fs.FileMode) error {
	path := t.abs(rel)
	if err := t.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(t.fs, path, data, mode); err != nil {
		return err
	}
	// WriteFile only applies mode to new files.
	return t.fs.Chmod(path, mode)
}

func (t *FsTree) MkdirAll(_ context.Context, rel string) error {
	return t.fs.MkdirAll(t.abs(rel), 0o755)
}

func (t *FsTree) Chmod(_ context.Context, rel string, mode fs.FileMode) error {
	return t.fs.Chmod(t.abs(rel), mode)
}

func (t *FsTree) abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}
