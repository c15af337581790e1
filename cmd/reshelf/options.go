package main

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// Viper keys of the run flags.
const (
	keyMode            = "mode"
	keyEnvironments    = "environments"
	keyDryRun          = "dry-run"
	keyNoParallel      = "no-parallel"
	keyMaxParallel     = "max-parallel"
	keyNoBackup        = "no-backup"
	keyNoPermissions   = "no-permissions"
	keyNoSync          = "no-sync"
	keyContinueOnError = "continue-on-error"
	keyMergeScans      = "merge-scans"
)

// runOptions mirror the run flags. Negative flags keep the CLI close to
// the defaults most runs want.
type runOptions struct {
	Mode            string   `mapstructure:"mode"`
	Environments    []string `mapstructure:"environments"`
	DryRun          bool     `mapstructure:"dry-run"`
	NoParallel      bool     `mapstructure:"no-parallel"`
	MaxParallel     int      `mapstructure:"max-parallel"`
	NoBackup        bool     `mapstructure:"no-backup"`
	NoPermissions   bool     `mapstructure:"no-permissions"`
	NoSync          bool     `mapstructure:"no-sync"`
	ContinueOnError bool     `mapstructure:"continue-on-error"`
	MergeScans      bool     `mapstructure:"merge-scans"`
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.StringP(keyMode, "m", "", "Execution mode (full, scan_only, classify_only, move_only, sync_only)")
	flags.StringSliceP(keyEnvironments, "e", nil, "Comma separated environments to process")
	flags.Bool(keyDryRun, false, "Plan every change without touching files")
	flags.Bool(keyNoParallel, false, "Process environments one at a time")
	flags.Int(keyMaxParallel, 0, "Maximum environments processed at once")
	flags.Bool(keyNoBackup, false, "Skip the backup phase")
	flags.Bool(keyNoPermissions, false, "Skip the permission phase")
	flags.Bool(keyNoSync, false, "Skip the cross-environment sync")
	flags.Bool(keyContinueOnError, false, "Keep running after a phase fails")
	flags.Bool(keyMergeScans, true, "Treat the scans of all environments as one working set")
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// bindCommand binds the flags of the command being executed, including the
// inherited persistent ones.
func bindCommand(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

func decodeGlobals(v *viper.Viper) (globalOptions, error) {
	var opts globalOptions
	if err := v.Unmarshal(&opts, decodeHook()); err != nil {
		return globalOptions{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

// decodeRunOptions layers flags and RESHELF_* variables over defaults,
// which normally come from the configuration file.
func decodeRunOptions(v *viper.Viper, defaults organize.ExecutionOptions) (organize.ExecutionOptions, bool, error) {
	envs := make([]string, 0, len(defaults.Environments))
	for _, env := range defaults.Environments {
		envs = append(envs, env.String())
	}
	v.SetDefault(keyMode, string(defaults.Mode))
	v.SetDefault(keyEnvironments, envs)
	v.SetDefault(keyDryRun, defaults.DryRun)
	v.SetDefault(keyNoParallel, !defaults.EnableParallel)
	v.SetDefault(keyMaxParallel, defaults.MaxParallel)
	v.SetDefault(keyNoBackup, !defaults.CreateBackup)
	v.SetDefault(keyNoPermissions, !defaults.SetPermissions)
	v.SetDefault(keyNoSync, !defaults.EnableSync)
	v.SetDefault(keyContinueOnError, defaults.ContinueOnError)
	v.SetDefault(keyMergeScans, true)

	var raw runOptions
	if err := v.Unmarshal(&raw, decodeHook()); err != nil {
		return organize.ExecutionOptions{}, false, fmt.Errorf("decode run options: %w", err)
	}
	return raw.executionOptions(), raw.MergeScans, nil
}

func (r runOptions) executionOptions() organize.ExecutionOptions {
	return organize.ExecutionOptions{
		Mode:            organize.Mode(strings.TrimSpace(r.Mode)),
		Environments:    organize.ParseEnvironments(strings.Join(r.Environments, ",")),
		DryRun:          r.DryRun,
		EnableParallel:  !r.NoParallel,
		MaxParallel:     r.MaxParallel,
		CreateBackup:    !r.NoBackup,
		SetPermissions:  !r.NoPermissions,
		EnableSync:      !r.NoSync,
		ContinueOnError: r.ContinueOnError,
	}
}
