package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// CreateBackup copies paths with cp -p into the backup root and records
// the size and checksum the host reports. xxh64sum is preferred; hosts
// without it fall back to sha256sum.
func (h *Host) CreateBackup(ctx context.Context, paths []string, backupID string) (organize.BackupResult, error) {
	result := organize.BackupResult{
		BackupID:    backupID,
		Environment: h.env,
		BackupPath:  path.Join(h.backupRoot, backupID),
		Files:       make([]organize.BackupFile, 0, len(paths)),
		CreatedAt:   h.now(),
	}
	if len(paths) == 0 {
		return result, nil
	}

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = path.Base(p)
	}

	if h.dryRun {
		for i, p := range paths {
			result.Files = append(result.Files, organize.BackupFile{OriginalPath: p, BackupPath: path.Join(result.BackupPath, names[i])})
		}
		return result, nil
	}

	dir := h.backupDirExpr(backupID)
	out, err := h.exec(ctx, fmt.Sprintf("mkdir -p %s && cp -p -- %s %s/ && cd %s && pwd", dir, quoteAll(paths), dir, dir))
	if err != nil {
		return result, err
	}
	if resolved := lines(out); len(resolved) > 0 {
		result.BackupPath = resolved[len(resolved)-1]
	}
	backupPath := quote(result.BackupPath)

	out, err = h.exec(ctx, fmt.Sprintf(`cd %s && stat -c '%%s\t%%n' -- %s`, backupPath, quoteAll(names)))
	if err != nil {
		return result, err
	}
	sizes := map[string]int64{}
	for _, line := range lines(out) {
		raw, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		if size, err := strconv.ParseInt(raw, 10, 64); err == nil {
			sizes[name] = size
		}
	}

	out, err = h.exec(ctx, fmt.Sprintf(
		"cd %s && if command -v xxh64sum >/dev/null 2>&1; then xxh64sum -- %s; else sha256sum -- %s; fi",
		backupPath, quoteAll(names), quoteAll(names),
	))
	if err != nil {
		return result, err
	}
	sums := map[string]string{}
	for _, line := range lines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		sums[strings.TrimPrefix(fields[len(fields)-1], "*")] = fields[0]
	}

	for i, p := range paths {
		entry := organize.BackupFile{
			OriginalPath: p,
			BackupPath:   path.Join(result.BackupPath, names[i]),
			Size:         sizes[names[i]],
			Checksum:     sums[names[i]],
		}
		result.Files = append(result.Files, entry)
		result.TotalSize += entry.Size
	}

	metadata, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("encode backup metadata: %w", err)
	}
	if _, err := h.exec(ctx, fmt.Sprintf("printf '%%s' %s > %s", quote(string(metadata)), quote(path.Join(result.BackupPath, "metadata.json")))); err != nil {
		return result, err
	}

	h.logger.Info(ctx, "backup created", "backup_id", backupID, "files", len(result.Files), "bytes", result.TotalSize)
	return result, nil
}

func (h *Host) backupDirExpr(backupID string) string {
	dir := path.Join(h.backupRoot, backupID)
	if path.IsAbs(dir) {
		return quote(dir)
	}
	return `"$HOME"/` + quote(dir)
}
