package config

import (
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// Config represents the full reshelf run configuration document.
type Config struct {
	Version      string                       `yaml:"version" validate:"required,schema_version"`
	Environments map[string]EnvironmentConfig `yaml:"environments" validate:"required,min=1,dive,keys,environment,endkeys"`
	Remote       *RemoteConfig                `yaml:"remote,omitempty"`
	Rules        []RuleConfig                 `yaml:"rules,omitempty" validate:"omitempty,dive"`
	Ignore       []string                     `yaml:"ignore,omitempty" validate:"omitempty,dive,glob"`
	Preserve     []string                     `yaml:"preserve,omitempty" validate:"omitempty,dive,glob"`
	Directories  []string                     `yaml:"directories,omitempty" validate:"omitempty,dive,required,relpath"`
	BackupDir    string                       `yaml:"backup_dir,omitempty"`
	Sync         SyncConfig                   `yaml:"sync,omitempty"`
	Report       ReportConfig                 `yaml:"report,omitempty"`
	Defaults     DefaultsConfig               `yaml:"defaults,omitempty"`
}

// EnvironmentConfig holds the settings of one environment.
type EnvironmentConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// RemoteConfig holds the SSH parameters of the remote environment.
type RemoteConfig struct {
	Host    string        `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	User    string        `yaml:"user,omitempty"`
	KeyPath string        `yaml:"key_path,omitempty"`
	Port    int           `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"omitempty,min=0"`
}

// RuleConfig maps patterns to a target directory.
type RuleConfig struct {
	Name           string   `yaml:"name" validate:"required,min=1,max=64"`
	Description    string   `yaml:"description,omitempty"`
	Type           string   `yaml:"type,omitempty" validate:"omitempty,oneof=script document config test temp archive asset security unknown"`
	Patterns       []string `yaml:"patterns" validate:"required,min=1,dive,glob"`
	Target         string   `yaml:"target" validate:"required,relpath"`
	Permissions    string   `yaml:"permissions,omitempty" validate:"omitempty,octal_mode"`
	Priority       int      `yaml:"priority,omitempty" validate:"omitempty,min=0,max=1000"`
	RequiresReview bool     `yaml:"requires_review,omitempty"`
}

// SyncConfig configures the cross-environment sync.
type SyncConfig struct {
	Source      string   `yaml:"source,omitempty"`
	Destination string   `yaml:"destination,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty" validate:"omitempty,dive,glob"`
}

// ReportConfig configures reports and the progress display.
type ReportConfig struct {
	OutputDir      string        `yaml:"output_dir,omitempty"`
	Formats        []string      `yaml:"formats,omitempty" validate:"omitempty,dive,report_format"`
	UpdateInterval time.Duration `yaml:"update_interval,omitempty" validate:"omitempty,min=100ms"`
	ShowDetails    *bool         `yaml:"show_details,omitempty"`
	UseColors      *bool         `yaml:"use_colors,omitempty"`
}

// DefaultsConfig overrides the default execution options. Unset fields keep
// the built-in defaults.
type DefaultsConfig struct {
	Mode            string   `yaml:"mode,omitempty" validate:"omitempty,oneof=full scan_only classify_only move_only sync_only"`
	Environments    []string `yaml:"environments,omitempty" validate:"omitempty,unique,dive,environment"`
	DryRun          *bool    `yaml:"dry_run,omitempty"`
	Parallel        *bool    `yaml:"parallel,omitempty"`
	MaxParallel     int      `yaml:"max_parallel,omitempty" validate:"omitempty,min=1,max=16"`
	Backup          *bool    `yaml:"backup,omitempty"`
	Permissions     *bool    `yaml:"permissions,omitempty"`
	Sync            *bool    `yaml:"sync,omitempty"`
	ContinueOnError *bool    `yaml:"continue_on_error,omitempty"`
}

// Settings converts the document into domain settings, filling anything the
// document leaves out from organize.DefaultSettings.
func (c *Config) Settings() *organize.Settings {
	settings := organize.DefaultSettings()

	settings.Environments = make(map[organize.Environment]organize.EnvironmentSettings, len(c.Environments))
	for name, env := range c.Environments {
		settings.Environments[organize.Environment(name)] = organize.EnvironmentSettings{Root: env.Root}
	}

	if c.Remote != nil {
		remote := organize.RemoteSettings{
			Host:    c.Remote.Host,
			User:    c.Remote.User,
			KeyPath: c.Remote.KeyPath,
			Port:    c.Remote.Port,
			Timeout: c.Remote.Timeout,
		}
		if remote.Port == 0 {
			remote.Port = 22
		}
		if remote.Timeout == 0 {
			remote.Timeout = 30 * time.Second
		}
		settings.Remote = &remote
	}

	if len(c.Rules) > 0 {
		settings.Rules = make([]organize.Rule, 0, len(c.Rules))
		for _, rule := range c.Rules {
			fileType := organize.FileType(rule.Type)
			if fileType == "" {
				fileType = organize.FileTypeUnknown
			}
			settings.Rules = append(settings.Rules, organize.Rule{
				Name:           rule.Name,
				Description:    rule.Description,
				FileType:       fileType,
				Patterns:       append([]string(nil), rule.Patterns...),
				Target:         rule.Target,
				Permissions:    rule.Permissions,
				Priority:       rule.Priority,
				RequiresReview: rule.RequiresReview,
			})
		}
		settings.Directories = append(organize.TargetDirectories(settings.Rules), organize.DefaultReportDir)
	}

	if c.Ignore != nil {
		settings.Ignore = append([]string(nil), c.Ignore...)
	}
	if c.Preserve != nil {
		settings.Preserve = append([]string(nil), c.Preserve...)
	}
	if len(c.Directories) > 0 {
		settings.Directories = append([]string(nil), c.Directories...)
	}
	if c.BackupDir != "" {
		settings.BackupDir = c.BackupDir
	}

	if c.Sync.Source != "" {
		settings.Sync.Source = c.Sync.Source
	}
	if c.Sync.Destination != "" {
		settings.Sync.Destination = c.Sync.Destination
	}
	if c.Sync.Exclude != nil {
		settings.Sync.Exclude = append([]string(nil), c.Sync.Exclude...)
	}

	c.Report.apply(&settings.Report)
	c.Defaults.apply(&settings.Defaults)
	return &settings
}

func (r ReportConfig) apply(report *organize.ReportSettings) {
	if r.OutputDir != "" {
		report.OutputDir = r.OutputDir
	}
	if len(r.Formats) > 0 {
		report.Formats = append([]string(nil), r.Formats...)
	}
	if r.UpdateInterval > 0 {
		report.UpdateInterval = r.UpdateInterval
	}
	setBool(&report.ShowDetails, r.ShowDetails)
	setBool(&report.UseColors, r.UseColors)
}

func (d DefaultsConfig) apply(options *organize.ExecutionOptions) {
	if d.Mode != "" {
		options.Mode = organize.Mode(d.Mode)
	}
	if len(d.Environments) > 0 {
		envs := make([]organize.Environment, 0, len(d.Environments))
		for _, env := range d.Environments {
			envs = append(envs, organize.Environment(env))
		}
		options.Environments = envs
	}
	if d.MaxParallel > 0 {
		options.MaxParallel = d.MaxParallel
	}
	setBool(&options.DryRun, d.DryRun)
	setBool(&options.EnableParallel, d.Parallel)
	setBool(&options.CreateBackup, d.Backup)
	setBool(&options.SetPermissions, d.Permissions)
	setBool(&options.EnableSync, d.Sync)
	setBool(&options.ContinueOnError, d.ContinueOnError)
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
