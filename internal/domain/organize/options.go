package organize

// ProgressCallback receives a copy of the run's progress each time it
// changes phase.
type ProgressCallback func(Progress)

// ExecutionOptions is the immutable input of a run.
type ExecutionOptions struct {
	Mode            Mode
	Environments    []Environment
	DryRun          bool
	EnableParallel  bool
	MaxParallel     int
	CreateBackup    bool
	SetPermissions  bool
	EnableSync      bool
	ContinueOnError bool
	// ProgressCallback is optional.
	ProgressCallback ProgressCallback
}

// DefaultExecutionOptions mirrors a full two-environment run that stops at
// the first failing phase.
func DefaultExecutionOptions() ExecutionOptions {
	return ExecutionOptions{
		Mode:           ModeFull,
		Environments:   []Environment{EnvironmentLocal, EnvironmentEC2},
		EnableParallel: true,
		MaxParallel:    2,
		CreateBackup:   true,
		SetPermissions: true,
		EnableSync:     true,
	}
}

// Clone returns a copy whose environment slice does not alias the original.
func (o ExecutionOptions) Clone() ExecutionOptions {
	clone := o
	clone.Environments = append([]Environment(nil), o.Environments...)
	return clone
}

// Validate checks the options for internal consistency. An unknown mode is
// not an error. MaxParallel only matters when EnableParallel is set.
func (o ExecutionOptions) Validate() error {
	if len(o.Environments) == 0 {
		return newValidationError("at least one environment is required", nil)
	}

	seen := make(map[Environment]struct{}, len(o.Environments))
	for _, env := range o.Environments {
		if env == "" {
			return newValidationError("environment name must not be empty", nil)
		}
		if _, dup := seen[env]; dup {
			return newValidationError("environment requested more than once", map[string]interface{}{"environment": env})
		}
		seen[env] = struct{}{}
	}

	if o.EnableParallel && o.MaxParallel < 1 {
		return newValidationError("max parallel must be at least 1", map[string]interface{}{"max_parallel": o.MaxParallel})
	}

	return nil
}
