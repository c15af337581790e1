package organize

// Phase is one named stage of a run.
type Phase string

const (
	PhaseInitializing        Phase = "initializing"
	PhaseScanning            Phase = "scanning"
	PhaseClassifying         Phase = "classifying"
	PhaseCreatingDirectories Phase = "creating_directories"
	PhaseCreatingBackup      Phase = "creating_backup"
	PhaseMovingFiles         Phase = "moving_files"
	PhaseSettingPermissions  Phase = "setting_permissions"
	PhaseSyncing             Phase = "syncing"
	PhaseValidating          Phase = "validating"
	PhaseGeneratingReport    Phase = "generating_report"
	PhaseCompleted           Phase = "completed"
	PhaseFailed              Phase = "failed"
)

func (p Phase) String() string {
	return string(p)
}

// PerEnvironment reports whether the phase fans out one sub-task per
// requested environment.
func (p Phase) PerEnvironment() bool {
	switch p {
	case PhaseScanning, PhaseClassifying, PhaseCreatingDirectories,
		PhaseCreatingBackup, PhaseMovingFiles, PhaseSettingPermissions:
		return true
	default:
		return false
	}
}

// Terminal reports whether the phase marks the end of a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Mode selects which phases a run plans.
type Mode string

const (
	ModeFull         Mode = "full"
	ModeScanOnly     Mode = "scan_only"
	ModeClassifyOnly Mode = "classify_only"
	ModeMoveOnly     Mode = "move_only"
	ModeSyncOnly     Mode = "sync_only"
)

// Modes lists the recognised modes in documentation order.
func Modes() []Mode {
	return []Mode{ModeFull, ModeScanOnly, ModeClassifyOnly, ModeMoveOnly, ModeSyncOnly}
}

// Known reports whether m is one of the recognised modes.
func (m Mode) Known() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}
