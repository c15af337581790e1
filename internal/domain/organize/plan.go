package organize

// Plan returns the ordered phases a run with the given options executes.
//
// The plan always starts with PhaseInitializing. An unrecognised mode plans
// nothing after it; callers get a near no-op run rather than an error.
func Plan(options ExecutionOptions) []Phase {
	phases := []Phase{PhaseInitializing}

	switch options.Mode {
	case ModeFull:
		phases = append(phases, PhaseScanning, PhaseClassifying, PhaseCreatingDirectories)
		if options.CreateBackup {
			phases = append(phases, PhaseCreatingBackup)
		}
		phases = append(phases, PhaseMovingFiles)
		if options.SetPermissions {
			phases = append(phases, PhaseSettingPermissions)
		}
		if options.EnableSync {
			phases = append(phases, PhaseSyncing)
		}
		phases = append(phases, PhaseValidating, PhaseGeneratingReport)
	case ModeScanOnly:
		phases = append(phases, PhaseScanning)
	case ModeClassifyOnly:
		phases = append(phases, PhaseScanning, PhaseClassifying)
	case ModeMoveOnly:
		phases = append(phases, PhaseScanning, PhaseClassifying, PhaseCreatingDirectories, PhaseMovingFiles)
	case ModeSyncOnly:
		phases = append(phases, PhaseSyncing)
	}

	return phases
}
