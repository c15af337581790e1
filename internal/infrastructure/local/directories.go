package local

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// CreateEnvironmentStructure creates the layout under targetPath and
// reports which directories were new.
func (w *Workspace) CreateEnvironmentStructure(ctx context.Context, targetPath string, env organize.Environment) (organize.DirectoryResult, error) {
	if targetPath == "" {
		targetPath = w.root
	}
	result := organize.DirectoryResult{Environment: env}

	for _, dir := range w.layout {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		full := filepath.Join(targetPath, filepath.FromSlash(dir))
		exists, err := afero.DirExists(w.fs, full)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", full, err)
		}
		if exists {
			result.Existing = append(result.Existing, dir)
			continue
		}
		if !w.dryRun {
			if err := w.fs.MkdirAll(full, 0o755); err != nil {
				return result, fmt.Errorf("create %s: %w", full, err)
			}
		}
		result.Created = append(result.Created, dir)
	}

	w.logger.Info(ctx, "directory structure ready", "created", len(result.Created), "existing", len(result.Existing), "dry_run", w.dryRun)
	return result, nil
}
