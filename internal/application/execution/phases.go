package execution

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	pkgerrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

type phaseHandler func(ctx context.Context, s *session) error

func (e *Engine) handlerFor(phase organize.Phase) phaseHandler {
	switch phase {
	case organize.PhaseInitializing:
		return e.initialize
	case organize.PhaseScanning:
		return e.scan
	case organize.PhaseClassifying:
		return e.classify
	case organize.PhaseCreatingDirectories:
		return e.createDirectories
	case organize.PhaseCreatingBackup:
		return e.createBackups
	case organize.PhaseMovingFiles:
		return e.moveFiles
	case organize.PhaseSettingPermissions:
		return e.setPermissions
	case organize.PhaseSyncing:
		return e.syncEnvironments
	case organize.PhaseValidating:
		return e.validate
	case organize.PhaseGeneratingReport:
		return e.generateReports
	default:
		return nil
	}
}

func (e *Engine) initialize(ctx context.Context, s *session) error {
	options := s.options
	if err := options.Validate(); err != nil {
		return err
	}
	if !options.Mode.Known() {
		e.logger.Warn(ctx, "unknown mode, nothing will run after initialization", "mode", options.Mode)
	}

	plan := organize.Plan(options)
	for _, env := range options.Environments {
		set, ok := e.collaborators[env]
		if !ok {
			return pkgerrors.NewCollaboratorError(string(env), string(organize.PhaseInitializing), organize.NewError(organize.ErrCodeValidation, "no collaborators configured for environment", nil, map[string]interface{}{"environment": env}))
		}
		if missing := missingCollaborators(set, plan, options); len(missing) > 0 {
			return pkgerrors.NewCollaboratorError(string(env), string(organize.PhaseInitializing), organize.NewError(organize.ErrCodeValidation,
				"missing collaborators: "+strings.Join(missing, ", "), nil, map[string]interface{}{"environment": env}))
		}
	}

	if needsSyncManager(plan, options) && e.sync == nil {
		return organize.NewError(organize.ErrCodeValidation, "sync manager required for cross-environment phases", nil, nil)
	}

	for _, env := range options.Environments {
		set := e.collaborators[env]
		if set.Connection == nil {
			continue
		}
		if err := set.Connection.TestConnection(ctx); err != nil {
			return pkgerrors.NewCollaboratorError(string(env), string(organize.PhaseInitializing), organize.NewError(organize.ErrCodeConnection, "connection test failed", err, map[string]interface{}{"environment": env}))
		}
		e.logger.Info(ctx, "connection verified", "environment", env)
	}
	return nil
}

func missingCollaborators(set ports.CollaboratorSet, plan []organize.Phase, options organize.ExecutionOptions) []string {
	var missing []string
	for _, phase := range plan {
		switch {
		case phase == organize.PhaseScanning && set.Scanner == nil:
			missing = append(missing, "scanner")
		case phase == organize.PhaseClassifying && set.Classifier == nil:
			missing = append(missing, "classifier")
		case phase == organize.PhaseCreatingDirectories && set.Directories == nil:
			missing = append(missing, "directory creator")
		case phase == organize.PhaseCreatingBackup && set.Backup == nil:
			missing = append(missing, "backup manager")
		case phase == organize.PhaseMovingFiles && set.Mover == nil:
			missing = append(missing, "mover")
		case phase == organize.PhaseSettingPermissions && set.Permissions == nil:
			missing = append(missing, "permission manager")
		case phase == organize.PhaseValidating && options.SetPermissions && set.Validator == nil:
			missing = append(missing, "permission validator")
		}
	}
	return missing
}

func needsSyncManager(plan []organize.Phase, options organize.ExecutionOptions) bool {
	if !options.EnableSync || len(options.Environments) < 2 {
		return false
	}
	for _, phase := range plan {
		if phase == organize.PhaseSyncing || phase == organize.PhaseValidating {
			return true
		}
	}
	return false
}

func (e *Engine) scan(ctx context.Context, s *session) error {
	return e.fanOut(ctx, s, organize.PhaseScanning, func(ctx context.Context, env organize.Environment) (func(), error) {
		files, err := e.collaborators[env].Scanner.DetectFlatFiles(ctx, env)
		if err != nil {
			return nil, err
		}
		e.logger.Info(ctx, "environment scanned", "environment", env, "files", len(files))
		return func() { s.storeScan(env, files) }, nil
	})
}

func (e *Engine) classify(ctx context.Context, s *session) error {
	inputs := make(map[organize.Environment][]organize.FileInfo, len(s.options.Environments))
	for _, env := range s.options.Environments {
		if len(s.workingFiles(env)) == 0 {
			continue
		}
		inputs[env] = s.ownScan(env)
	}

	return e.fanOut(ctx, s, organize.PhaseClassifying, func(ctx context.Context, env organize.Environment) (func(), error) {
		files, ok := inputs[env]
		if !ok {
			e.logger.Debug(ctx, "nothing to classify", "environment", env)
			return nil, nil
		}
		classification, err := e.collaborators[env].Classifier.ClassifyEnvironment(ctx, env, files)
		if err != nil {
			return nil, err
		}
		results := classification.Classifications
		return func() { s.storeClassifications(env, results) }, nil
	})
}

func (e *Engine) createDirectories(ctx context.Context, s *session) error {
	return e.fanOut(ctx, s, organize.PhaseCreatingDirectories, func(ctx context.Context, env organize.Environment) (func(), error) {
		set := e.collaborators[env]
		result, err := set.Directories.CreateEnvironmentStructure(ctx, set.RootPath, env)
		if err != nil {
			return nil, err
		}
		return func() { s.addCreatedDirectories(env, len(result.Created)) }, nil
	})
}

func (e *Engine) createBackups(ctx context.Context, s *session) error {
	if !s.options.CreateBackup {
		e.logger.Info(ctx, "backup skipped")
		return nil
	}

	// Backup managers can only read their own environment, so a merged
	// working set is narrowed to the files each environment scanned.
	paths := make(map[organize.Environment][]string, len(s.options.Environments))
	for _, env := range s.options.Environments {
		for _, file := range s.workingFiles(env) {
			if file.Environment != "" && file.Environment != env {
				continue
			}
			paths[env] = append(paths[env], file.Path)
		}
	}

	return e.fanOut(ctx, s, organize.PhaseCreatingBackup, func(ctx context.Context, env organize.Environment) (func(), error) {
		if len(paths[env]) == 0 {
			e.logger.Warn(ctx, "no files to back up", "environment", env)
			return nil, nil
		}
		backupID := fmt.Sprintf("backup-%s-%d", env, e.now().UnixMilli())
		backup, err := e.collaborators[env].Backup.CreateBackup(ctx, paths[env], backupID)
		if err != nil {
			return nil, err
		}
		return func() { s.addBackup(backup) }, nil
	})
}

type moveInput struct {
	scanned []organize.FileInfo
	matched []organize.ClassificationResult
}

func (e *Engine) moveFiles(ctx context.Context, s *session) error {
	inputs := make(map[organize.Environment]moveInput, len(s.options.Environments))
	for _, env := range s.options.Environments {
		scanned := s.workingFiles(env)
		classifications := s.classificationsFor(env)
		if len(scanned) == 0 || len(classifications) == 0 {
			continue
		}
		inputs[env] = moveInput{scanned: scanned, matched: matchScanned(scanned, classifications)}
		e.logger.Debug(ctx, "move candidates",
			"environment", env,
			"scanned", len(scanned),
			"classified", len(classifications),
			"matched", len(inputs[env].matched),
		)
	}

	dryRun := s.options.DryRun
	return e.fanOut(ctx, s, organize.PhaseMovingFiles, func(ctx context.Context, env organize.Environment) (func(), error) {
		input, ok := inputs[env]
		if !ok {
			e.logger.Warn(ctx, "no scan or classification results", "environment", env)
			return nil, nil
		}
		result, err := e.collaborators[env].Mover.MoveFiles(ctx, input.scanned, input.matched, organize.MoveOptions{
			DryRun:             dryRun,
			CreateBackup:       false,
			OverwriteExisting:  false,
			PreserveTimestamps: true,
			Environment:        env,
		})
		if err != nil {
			return nil, err
		}
		return func() {
			s.storeMoved(env, result.MovedFiles)
			for _, failure := range result.Failed {
				e.logger.Warn(ctx, "file not moved", "environment", env, "path", failure.Path, "reason", failure.Reason)
				s.addWarning(fmt.Sprintf("%s: could not move %s: %s", env, failure.Path, failure.Reason))
			}
		}, nil
	})
}

// matchScanned keeps the classifications whose source file was scanned in
// this run.
func matchScanned(scanned []organize.FileInfo, classifications []organize.ClassificationResult) []organize.ClassificationResult {
	paths := make(map[string]struct{}, len(scanned))
	for _, file := range scanned {
		paths[file.Path] = struct{}{}
	}
	matched := make([]organize.ClassificationResult, 0, len(classifications))
	for _, c := range classifications {
		if _, ok := paths[c.File.Path]; ok {
			matched = append(matched, c)
		}
	}
	return matched
}

type permissionInput struct {
	files           []organize.FileInfo
	classifications []organize.ClassificationResult
}

func (s *session) permissionInputs() map[organize.Environment]permissionInput {
	inputs := make(map[organize.Environment]permissionInput, len(s.options.Environments))
	for _, env := range s.options.Environments {
		files := s.movedFiles(env)
		classifications := s.classificationsFor(env)
		if len(files) == 0 || len(classifications) == 0 {
			continue
		}
		inputs[env] = permissionInput{files: files, classifications: classifications}
	}
	return inputs
}

func (e *Engine) setPermissions(ctx context.Context, s *session) error {
	if !s.options.SetPermissions {
		e.logger.Info(ctx, "permission update skipped")
		return nil
	}

	inputs := s.permissionInputs()
	return e.fanOut(ctx, s, organize.PhaseSettingPermissions, func(ctx context.Context, env organize.Environment) (func(), error) {
		input, ok := inputs[env]
		if !ok {
			return nil, nil
		}
		summary, err := e.collaborators[env].Permissions.SetPermissions(ctx, input.files, input.classifications, env)
		if err != nil {
			return nil, err
		}
		return func() {
			s.addPermissionUpdates(env, summary.SuccessfulUpdates)
			if summary.FailedUpdates > 0 {
				s.addWarning(fmt.Sprintf("%s: %d permission update(s) failed", env, summary.FailedUpdates))
			}
		}, nil
	})
}

func (e *Engine) syncEnvironments(ctx context.Context, s *session) error {
	if !s.options.EnableSync || len(s.options.Environments) < 2 {
		e.logger.Info(ctx, "sync skipped", "enabled", s.options.EnableSync, "environments", len(s.options.Environments))
		return nil
	}

	result, err := e.sync.ExecuteSync(ctx, e.syncSource, e.syncDestination, organize.SyncOptions{
		Direction:         organize.SyncBidirectional,
		DryRun:            s.options.DryRun,
		OverwriteExisting: false,
		SyncPermissions:   true,
		CreateBackup:      false,
		ExcludePatterns:   append([]string(nil), e.syncExcludes...),
	})
	if err != nil {
		return err
	}
	s.recordSync(result)
	e.logger.Info(ctx, "environments synced", "synced_files", result.Statistics.SyncedFiles, "skipped", result.Statistics.SkippedItems)
	return nil
}

func (e *Engine) validate(ctx context.Context, s *session) error {
	if s.options.SetPermissions {
		inputs := s.permissionInputs()
		for _, env := range s.options.Environments {
			input, ok := inputs[env]
			if !ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return cancelledError(err)
			}
			validation, err := e.collaborators[env].Validator.ValidatePermissions(ctx, input.files, input.classifications, env)
			if err != nil {
				return pkgerrors.NewCollaboratorError(string(env), string(organize.PhaseValidating), err)
			}
			if !validation.Valid {
				s.addWarning(fmt.Sprintf("%s: %d permission issue(s) detected", env, len(validation.Issues)))
			}
		}
	}

	if s.options.EnableSync && len(s.options.Environments) >= 2 {
		report, err := e.sync.VerifyConsistency(ctx)
		if err != nil {
			return err
		}
		s.recordConsistency(report)
		if !report.IsConsistent {
			s.addWarning(fmt.Sprintf("%d cross-environment inconsistencies detected", len(report.Inconsistencies)))
		}
	}
	return nil
}

func (e *Engine) generateReports(ctx context.Context, s *session) error {
	if e.reports == nil {
		e.logger.Debug(ctx, "no report writer configured")
		return nil
	}

	snapshot := s.result(e.now())
	kinds := []organize.ReportKind{organize.ReportExecutionSummary}
	if len(s.options.Environments) >= 2 {
		kinds = append(kinds, organize.ReportEnvironmentComparison)
	}
	if len(snapshot.Errors) > 0 {
		kinds = append(kinds, organize.ReportErrorAnalysis)
	}

	for _, kind := range kinds {
		report, err := e.reports.WriteReport(ctx, kind, snapshot)
		if err != nil {
			return fmt.Errorf("write %s report: %w", kind, err)
		}
		s.addReport(report)
		e.logger.Info(ctx, "report written", "type", kind, "path", report.FilePath)
	}
	return nil
}
