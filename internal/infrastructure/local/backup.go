package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

const backupMetadataFile = "metadata.json"

// CreateBackup copies paths into <root>/<backupDir>/<backupID>/ and writes
// a metadata.json listing every file with its xxhash64 checksum.
func (w *Workspace) CreateBackup(ctx context.Context, paths []string, backupID string) (organize.BackupResult, error) {
	dir := filepath.Join(w.root, filepath.FromSlash(w.backupDir), backupID)
	result := organize.BackupResult{
		BackupID:    backupID,
		Environment: w.env,
		BackupPath:  dir,
		Files:       make([]organize.BackupFile, 0, len(paths)),
		CreatedAt:   w.now(),
	}

	if !w.dryRun {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return result, fmt.Errorf("create backup dir %s: %w", dir, err)
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		dst := filepath.Join(dir, filepath.FromSlash(w.relative(path)))
		entry, err := w.backupFile(path, dst)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, entry)
		result.TotalSize += entry.Size
	}

	if !w.dryRun {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return result, fmt.Errorf("encode backup metadata: %w", err)
		}
		if err := afero.WriteFile(w.fs, filepath.Join(dir, backupMetadataFile), data, 0o644); err != nil {
			return result, fmt.Errorf("write backup metadata: %w", err)
		}
	}

	w.logger.Info(ctx, "backup created", "backup_id", backupID, "files", len(result.Files), "bytes", result.TotalSize, "dry_run", w.dryRun)
	return result, nil
}

func (w *Workspace) backupFile(src, dst string) (organize.BackupFile, error) {
	in, err := w.fs.Open(src)
	if err != nil {
		return organize.BackupFile{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	hash := xxhash.New()
	var sink io.Writer = hash
	var out afero.File
	if !w.dryRun {
		if err := w.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return organize.BackupFile{}, fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		out, err = w.fs.Create(dst)
		if err != nil {
			return organize.BackupFile{}, fmt.Errorf("create %s: %w", dst, err)
		}
		sink = io.MultiWriter(out, hash)
	}

	size, err := io.Copy(sink, in)
	if out != nil {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return organize.BackupFile{}, fmt.Errorf("back up %s: %w", src, err)
	}

	return organize.BackupFile{
		OriginalPath: src,
		BackupPath:   dst,
		Size:         size,
		Checksum:     strconv.FormatUint(hash.Sum64(), 16),
	}, nil
}
