package local

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// DetectFlatFiles lists the regular, non-hidden files directly under the
// root. Subdirectories are not descended into.
func (w *Workspace) DetectFlatFiles(ctx context.Context, env organize.Environment) ([]organize.FileInfo, error) {
	entries, err := afero.ReadDir(w.fs, w.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.root, err)
	}

	files := make([]organize.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !entry.Mode().IsRegular() || strings.HasPrefix(name, ".") || w.ignored(name) {
			continue
		}
		path := filepath.Join(w.root, name)
		files = append(files, organize.FileInfo{
			Path:         path,
			Name:         name,
			Extension:    filepath.Ext(name),
			Size:         entry.Size(),
			Permissions:  organize.FormatMode(entry.Mode().Perm()),
			LastModified: entry.ModTime(),
			Environment:  env,
			RelativePath: name,
		})
	}

	w.logger.Info(ctx, "flat files detected", "root", w.root, "entries", len(entries), "files", len(files))
	return files, nil
}
