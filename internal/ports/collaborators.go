package ports

import (
	"context"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// Scanner detects flat files in one environment.
type Scanner interface {
	DetectFlatFiles(ctx context.Context, env organize.Environment) ([]organize.FileInfo, error)
}

// Classifier decides where each scanned file belongs.
type Classifier interface {
	ClassifyEnvironment(ctx context.Context, env organize.Environment, files []organize.FileInfo) (organize.Classification, error)
}

// Mover relocates classified files.
type Mover interface {
	MoveFiles(ctx context.Context, scanned []organize.FileInfo, classifications []organize.ClassificationResult, opts organize.MoveOptions) (organize.MoveResult, error)
}

// PermissionManager applies the modes chosen by classification.
type PermissionManager interface {
	SetPermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionSummary, error)
}

// PermissionValidator checks that applied modes stuck.
type PermissionValidator interface {
	ValidatePermissions(ctx context.Context, files []organize.FileInfo, classifications []organize.ClassificationResult, env organize.Environment) (organize.PermissionValidation, error)
}

// DirectoryCreator lays out the target directory structure.
type DirectoryCreator interface {
	CreateEnvironmentStructure(ctx context.Context, targetPath string, env organize.Environment) (organize.DirectoryResult, error)
}

// BackupManager snapshots files before they move.
type BackupManager interface {
	CreateBackup(ctx context.Context, paths []string, backupID string) (organize.BackupResult, error)
}

// SyncManager reconciles environments with each other.
type SyncManager interface {
	ExecuteSync(ctx context.Context, src, dst string, opts organize.SyncOptions) (organize.SyncResult, error)
	VerifyConsistency(ctx context.Context) (organize.ConsistencyReport, error)
}

// ConnectionTester probes a remote environment before work starts.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// CollaboratorSet bundles everything a phase handler needs for one
// environment. Connection is nil for environments that need no probe.
type CollaboratorSet struct {
	RootPath    string
	Scanner     Scanner
	Classifier  Classifier
	Mover       Mover
	Backup      BackupManager
	Directories DirectoryCreator
	Permissions PermissionManager
	Validator   PermissionValidator
	Connection  ConnectionTester
}

// Collaborators selects the bundle for each environment.
type Collaborators map[organize.Environment]CollaboratorSet
