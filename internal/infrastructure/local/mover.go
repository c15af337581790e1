package local

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// MoveFiles relocates each classified file to <root>/<target>/<name>.
// Existing names get a numeric suffix unless OverwriteExisting is set.
// Failures are reported per file and do not stop the batch.
func (w *Workspace) MoveFiles(ctx context.Context, scanned []organize.FileInfo, classifications []organize.ClassificationResult, opts organize.MoveOptions) (organize.MoveResult, error) {
	known := make(map[string]struct{}, len(scanned))
	for _, file := range scanned {
		known[file.Path] = struct{}{}
	}

	dryRun := opts.DryRun || w.dryRun
	claimed := make(map[string]struct{}, len(classifications))
	result := organize.MoveResult{MovedFiles: make([]organize.FileInfo, 0, len(classifications))}

	for _, c := range classifications {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		src := c.File
		if _, ok := known[src.Path]; !ok {
			continue
		}
		if opts.Environment != "" && src.Environment != "" && src.Environment != opts.Environment {
			continue
		}

		dir := filepath.Join(w.root, filepath.FromSlash(c.TargetPath))
		dst, err := w.destination(dir, src.Name, opts.OverwriteExisting, claimed)
		if err != nil {
			result.Failed = append(result.Failed, organize.MoveFailure{Path: src.Path, Reason: err.Error()})
			continue
		}
		claimed[dst] = struct{}{}

		if !dryRun {
			if err := w.fs.MkdirAll(dir, 0o755); err != nil {
				result.Failed = append(result.Failed, organize.MoveFailure{Path: src.Path, Reason: fmt.Sprintf("create %s: %v", dir, err)})
				continue
			}
			if err := w.moveFile(src.Path, dst, opts); err != nil {
				result.Failed = append(result.Failed, organize.MoveFailure{Path: src.Path, Reason: err.Error()})
				continue
			}
		}

		moved := src
		moved.Path = dst
		moved.Name = filepath.Base(dst)
		moved.RelativePath = w.relative(dst)
		moved.OriginalPath = src.Path
		result.MovedFiles = append(result.MovedFiles, moved)
		w.logger.Debug(ctx, "file moved", "from", src.Path, "to", dst, "dry_run", dryRun)
	}

	w.logger.Info(ctx, "files moved", "moved", len(result.MovedFiles), "failed", len(result.Failed), "dry_run", dryRun)
	return result, nil
}

func (w *Workspace) destination(dir, name string, overwrite bool, claimed map[string]struct{}) (string, error) {
	dst := filepath.Join(dir, name)
	taken := func(path string) (bool, error) {
		if _, ok := claimed[path]; ok {
			return true, nil
		}
		if overwrite {
			return false, nil
		}
		return afero.Exists(w.fs, path)
	}

	busy, err := taken(dst)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", dst, err)
	}
	if !busy {
		return dst, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
		busy, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		}
		if !busy {
			return candidate, nil
		}
	}
}

// moveFile renames src to dst, falling back to copy and remove when the
// rename crosses filesystems.
func (w *Workspace) moveFile(src, dst string, opts organize.MoveOptions) error {
	if err := w.fs.Rename(src, dst); err == nil {
		return nil
	}

	info, err := w.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if err := w.copyFile(src, dst); err != nil {
		return err
	}
	if opts.PreservePermissions {
		if err := w.fs.Chmod(dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("chmod %s: %w", dst, err)
		}
	}
	if opts.PreserveTimestamps {
		if err := w.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("chtimes %s: %w", dst, err)
		}
	}
	if err := w.fs.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func (w *Workspace) copyFile(src, dst string) error {
	in, err := w.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := w.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
