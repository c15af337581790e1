package local

import (
	"context"
	"errors"
	"io/fs"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// SetPermissions applies each file's classified mode.
func (w *Workspace) SetPermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionSummary, error) {
	idx := organize.NewClassificationIndex(classifications)
	summary := organize.PermissionSummary{
		Environment: env,
		TotalFiles:  len(files),
		Errors:      map[string]int{},
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		c, ok := idx.Lookup(file)
		if !ok || c.Permissions == "" {
			continue
		}
		mode, err := organize.ParseMode(c.Permissions)
		if err != nil {
			summary.FailedUpdates++
			summary.Errors["invalid_mode"]++
			continue
		}
		if w.dryRun {
			summary.SuccessfulUpdates++
			continue
		}
		if err := w.fs.Chmod(file.Path, mode); err != nil {
			summary.FailedUpdates++
			summary.Errors[permissionErrorKind(err)]++
			w.logger.Warn(ctx, "chmod failed", "path", file.Path, "mode", c.Permissions, "error", err)
			continue
		}
		summary.SuccessfulUpdates++
	}

	w.logger.Info(ctx, "permissions applied", "updated", summary.SuccessfulUpdates, "failed", summary.FailedUpdates, "dry_run", w.dryRun)
	return summary, nil
}

// ValidatePermissions compares each file's mode with its classification.
func (w *Workspace) ValidatePermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionValidation, error) {
	idx := organize.NewClassificationIndex(classifications)
	validation := organize.PermissionValidation{Valid: true}
	if w.dryRun {
		return validation, nil
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return validation, err
		}
		c, ok := idx.Lookup(file)
		if !ok || c.Permissions == "" {
			continue
		}
		expected, err := organize.ParseMode(c.Permissions)
		if err != nil {
			continue
		}
		info, err := w.fs.Stat(file.Path)
		if err != nil {
			validation.Issues = append(validation.Issues, organize.PermissionIssue{
				Path:     file.Path,
				Expected: organize.FormatMode(expected),
				Issue:    "file not found",
			})
			continue
		}
		actual := info.Mode().Perm()
		if actual != expected {
			validation.Issues = append(validation.Issues, organize.PermissionIssue{
				Path:     file.Path,
				Expected: organize.FormatMode(expected),
				Actual:   organize.FormatMode(actual),
				Issue:    "mode mismatch",
			})
		}
	}

	validation.Valid = len(validation.Issues) == 0
	w.logger.Debug(ctx, "permissions validated", "environment", env, "issues", len(validation.Issues))
	return validation, nil
}

func permissionErrorKind(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(err, fs.ErrPermission):
		return "permission_denied"
	default:
		return "other"
	}
}
