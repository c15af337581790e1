package organize

import (
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"time"
)

// FileType is the category a classifier assigns to a flat file.
type FileType string

const (
	FileTypeScript   FileType = "script"
	FileTypeDocument FileType = "document"
	FileTypeConfig   FileType = "config"
	FileTypeTest     FileType = "test"
	FileTypeTemp     FileType = "temp"
	FileTypeArchive  FileType = "archive"
	FileTypeAsset    FileType = "asset"
	FileTypeSecurity FileType = "security"
	FileTypeUnknown  FileType = "unknown"
)

// FileInfo describes one file seen by a scanner.
type FileInfo struct {
	Path         string      `json:"path"`
	Name         string      `json:"name"`
	Extension    string      `json:"extension"`
	Size         int64       `json:"size"`
	Permissions  string      `json:"permissions"`
	LastModified time.Time   `json:"lastModified"`
	Environment  Environment `json:"environment"`
	RelativePath string      `json:"relativePath"`
	IsDirectory  bool        `json:"isDirectory"`
	IsHidden     bool        `json:"isHidden"`
	// OriginalPath is set by movers to the path the file was scanned at.
	OriginalPath string      `json:"originalPath,omitempty"`
}

// ClassificationResult records where a file should go and with which mode.
type ClassificationResult struct {
	File           FileInfo `json:"file"`
	FileType       FileType `json:"fileType"`
	TargetPath     string   `json:"targetPath"`
	Permissions    string   `json:"permissions,omitempty"`
	Confidence     float64  `json:"confidence"`
	Reasoning      []string `json:"reasoning,omitempty"`
	RequiresReview bool     `json:"requiresReview"`
	AppliedRule    string   `json:"appliedRule"`
}

// Classification is the outcome of classifying one environment.
type Classification struct {
	Classifications []ClassificationResult
}

// MoveOptions tunes a mover invocation.
type MoveOptions struct {
	CreateBackup        bool
	OverwriteExisting   bool
	PreservePermissions bool
	PreserveTimestamps  bool
	DryRun              bool
	Environment         Environment
}

// MoveFailure is a single file a mover could not relocate.
type MoveFailure struct {
	Path   string
	Reason string
}

// MoveResult lists files at their new location.
type MoveResult struct {
	MovedFiles []FileInfo
	Failed     []MoveFailure
}

// PermissionSummary reports a bulk permission update.
type PermissionSummary struct {
	Environment       Environment
	TotalFiles        int
	SuccessfulUpdates int
	FailedUpdates     int
	Errors            map[string]int
}

// PermissionIssue is a mismatch between expected and actual file mode.
type PermissionIssue struct {
	Path     string
	Expected string
	Actual   string
	Issue    string
}

// PermissionValidation is the outcome of checking permissions.
type PermissionValidation struct {
	Valid  bool
	Issues []PermissionIssue
}

// DirectoryResult lists the directories a creator actually made.
type DirectoryResult struct {
	Environment Environment
	Created     []string
	Existing    []string
}

// BackupFile is one entry of a backup.
type BackupFile struct {
	OriginalPath string `json:"originalPath"`
	BackupPath   string `json:"backupPath"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum"`
}

// BackupResult describes a completed backup.
type BackupResult struct {
	BackupID    string       `json:"backupId"`
	Environment Environment  `json:"environment"`
	BackupPath  string       `json:"backupPath"`
	Files       []BackupFile `json:"files"`
	TotalSize   int64        `json:"totalSize"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ClassificationIndex finds the classification that produced a file, whether
// the file is still at its scanned path or already at its target.
type ClassificationIndex struct {
	bySource map[string]ClassificationResult
	byTarget map[string]ClassificationResult
}

// NewClassificationIndex indexes classifications by source path and by
// target-relative path.
func NewClassificationIndex(classifications []ClassificationResult) ClassificationIndex {
	idx := ClassificationIndex{
		bySource: make(map[string]ClassificationResult, len(classifications)),
		byTarget: make(map[string]ClassificationResult, len(classifications)),
	}
	for _, c := range classifications {
		idx.bySource[c.File.Path] = c
		idx.byTarget[path.Join(c.TargetPath, c.File.Name)] = c
	}
	return idx
}

// Lookup returns the classification for file.
func (idx ClassificationIndex) Lookup(file FileInfo) (ClassificationResult, bool) {
	if c, ok := idx.bySource[file.Path]; ok {
		return c, true
	}
	if c, ok := idx.bySource[file.OriginalPath]; ok && file.OriginalPath != "" {
		return c, true
	}
	if file.RelativePath == "" {
		return ClassificationResult{}, false
	}
	c, ok := idx.byTarget[file.RelativePath]
	return c, ok
}

// ParseMode parses an octal permission string such as "0755".
func ParseMode(raw string) (fs.FileMode, error) {
	value, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", raw, err)
	}
	if value > 0o777 {
		return 0, fmt.Errorf("invalid mode %q: out of range", raw)
	}
	return fs.FileMode(value), nil
}

// FormatMode renders the permission bits of mode as four octal digits.
func FormatMode(mode fs.FileMode) string {
	return fmt.Sprintf("%04o", uint32(mode.Perm()))
}
