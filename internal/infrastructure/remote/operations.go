package remote

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// MoveFiles relocates each classified file with mkdir -p and mv -n. Name
// conflicts get a numeric suffix chosen on the host.
func (h *Host) MoveFiles(ctx context.Context, scanned []organize.FileInfo, classifications []organize.ClassificationResult, opts organize.MoveOptions) (organize.MoveResult, error) {
	known := make(map[string]struct{}, len(scanned))
	for _, file := range scanned {
		known[file.Path] = struct{}{}
	}

	dryRun := opts.DryRun || h.dryRun
	planned := make(map[string]struct{}, len(classifications))
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

		dir := path.Join(h.root, c.TargetPath)
		var dst string
		if dryRun {
			dst = plannedDestination(dir, src.Name, planned)
		} else {
			out, err := h.exec(ctx, moveScript(src.Path, dir, src.Name, opts.OverwriteExisting))
			if err != nil {
				result.Failed = append(result.Failed, organize.MoveFailure{Path: src.Path, Reason: err.Error()})
				continue
			}
			moved := lines(out)
			if len(moved) == 0 {
				result.Failed = append(result.Failed, organize.MoveFailure{Path: src.Path, Reason: "no destination reported"})
				continue
			}
			dst = moved[len(moved)-1]
		}
		planned[dst] = struct{}{}

		file := src
		file.Path = dst
		file.Name = path.Base(dst)
		file.RelativePath = h.relative(dst)
		file.OriginalPath = src.Path
		result.MovedFiles = append(result.MovedFiles, file)
	}

	h.logger.Info(ctx, "files moved", "moved", len(result.MovedFiles), "failed", len(result.Failed), "dry_run", dryRun)
	return result, nil
}

func moveScript(src, dir, name string, overwrite bool) string {
	if overwrite {
		dst := path.Join(dir, name)
		return fmt.Sprintf(`mkdir -p %s && mv -f -- %s %s && printf '%%s\n' %s`, quote(dir), quote(src), quote(dst), quote(dst))
	}
	ext := path.Ext(name)
	base := path.Join(dir, strings.TrimSuffix(name, ext))
	return fmt.Sprintf(
		`mkdir -p %s && dst=%s && i=0 && while [ -e "$dst" ]; do i=$((i+1)); dst=%s"-$i"%s; done && mv -n -- %s "$dst" && [ ! -e %s ] && printf '%%s\n' "$dst"`,
		quote(dir), quote(path.Join(dir, name)), quote(base), quote(ext), quote(src), quote(src),
	)
}

func plannedDestination(dir, name string, planned map[string]struct{}) string {
	dst := path.Join(dir, name)
	if _, ok := planned[dst]; !ok {
		return dst
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := path.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
		if _, ok := planned[candidate]; !ok {
			return candidate
		}
	}
}

// SetPermissions runs one chmod per distinct mode.
func (h *Host) SetPermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionSummary, error) {
	idx := organize.NewClassificationIndex(classifications)
	summary := organize.PermissionSummary{
		Environment: env,
		TotalFiles:  len(files),
		Errors:      map[string]int{},
	}

	var modes []string
	byMode := map[string][]string{}
	for _, file := range files {
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
		key := organize.FormatMode(mode)
		if _, seen := byMode[key]; !seen {
			modes = append(modes, key)
		}
		byMode[key] = append(byMode[key], file.Path)
	}

	for _, mode := range modes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		paths := byMode[mode]
		if h.dryRun {
			summary.SuccessfulUpdates += len(paths)
			continue
		}
		if _, err := h.exec(ctx, fmt.Sprintf("chmod %s -- %s", mode, quoteAll(paths))); err != nil {
			summary.FailedUpdates += len(paths)
			summary.Errors["command_failed"] += len(paths)
			h.logger.Warn(ctx, "chmod failed", "mode", mode, "files", len(paths), "error", err)
			continue
		}
		summary.SuccessfulUpdates += len(paths)
	}

	h.logger.Info(ctx, "permissions applied", "updated", summary.SuccessfulUpdates, "failed", summary.FailedUpdates, "dry_run", h.dryRun)
	return summary, nil
}

// ValidatePermissions compares stat -c %a output with each classification.
func (h *Host) ValidatePermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionValidation, error) {
	validation := organize.PermissionValidation{Valid: true}
	if h.dryRun {
		return validation, nil
	}

	idx := organize.NewClassificationIndex(classifications)
	expected := map[string]string{}
	var paths []string
	for _, file := range files {
		c, ok := idx.Lookup(file)
		if !ok || c.Permissions == "" {
			continue
		}
		mode, err := organize.ParseMode(c.Permissions)
		if err != nil {
			continue
		}
		expected[file.Path] = organize.FormatMode(mode)
		paths = append(paths, file.Path)
	}
	if len(paths) == 0 {
		return validation, nil
	}

	out, err := h.output(ctx, fmt.Sprintf(`stat -c '%%a\t%%n' -- %s 2>/dev/null`, quoteAll(paths)))
	if err != nil {
		return validation, err
	}
	actual := map[string]string{}
	for _, line := range lines(out) {
		mode, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		parsed, err := organize.ParseMode(mode)
		if err != nil {
			continue
		}
		actual[name] = organize.FormatMode(parsed)
	}

	for _, p := range paths {
		got, ok := actual[p]
		switch {
		case !ok:
			validation.Issues = append(validation.Issues, organize.PermissionIssue{Path: p, Expected: expected[p], Issue: "file not found"})
		case got != expected[p]:
			validation.Issues = append(validation.Issues, organize.PermissionIssue{Path: p, Expected: expected[p], Actual: got, Issue: "mode mismatch"})
		}
	}
	validation.Valid = len(validation.Issues) == 0
	h.logger.Debug(ctx, "permissions validated", "environment", env, "issues", len(validation.Issues))
	return validation, nil
}

// CreateEnvironmentStructure creates the layout under targetPath in one
// round trip and reports which directories were new.
func (h *Host) CreateEnvironmentStructure(ctx context.Context, targetPath string, env organize.Environment) (organize.DirectoryResult, error) {
	result := organize.DirectoryResult{Environment: env}
	if len(h.layout) == 0 {
		return result, nil
	}
	if targetPath == "" {
		targetPath = h.root
	}

	create := "mkdir -p %[1]s && "
	if h.dryRun {
		create = ""
	}
	steps := make([]string, 0, len(h.layout))
	for _, dir := range h.layout {
		full := path.Join(targetPath, dir)
		step := fmt.Sprintf(`if [ -d %[1]s ]; then printf 'exists\t%%s\n' %[2]s; else `+create+`printf 'created\t%%s\n' %[2]s; fi`, quote(full), quote(dir))
		steps = append(steps, step)
	}

	out, err := h.exec(ctx, strings.Join(steps, "; "))
	if err != nil {
		return result, err
	}
	for _, line := range lines(out) {
		state, dir, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		switch state {
		case "created":
			result.Created = append(result.Created, dir)
		case "exists":
			result.Existing = append(result.Existing, dir)
		}
	}

	h.logger.Info(ctx, "directory structure ready", "created", len(result.Created), "existing", len(result.Existing), "dry_run", h.dryRun)
	return result, nil
}
