package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/reshelf/internal/application/execution"
	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/classify"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/envsync"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/local"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/remote"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/report"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	pkgerrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// app is one fully wired run.
type app struct {
	engine    *execution.Engine
	publisher *events.LoggingPublisher
	reporter  *report.Reporter
}

func newLogger(opts globalOptions, w io.Writer) (ports.Logger, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}

	if strings.EqualFold(opts.LogFormat, "zerolog") {
		logger, err := logging.NewZerolog(logging.ZerologOptions{Level: level, Writer: w, Layer: "cli"})
		if err != nil {
			return nil, err
		}
		return logger, nil
	}

	logger, err := logging.New(logging.Options{
		Writer:  w,
		Level:   level,
		Format:  opts.LogFormat,
		NoColor: opts.NoColors,
		Layer:   "cli",
	})
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// loadSettings reads the configuration file, then applies the command
// line overrides and the SSH alias resolution.
func loadSettings(ctx context.Context, opts globalOptions, fs afero.Fs, logger ports.Logger) (*organize.Settings, error) {
	settings, err := config.NewYAMLLoader(logger, config.WithFs(fs)).Load(ctx, opts.Config)
	if err != nil {
		return nil, err
	}

	if opts.RemoteHost != "" || opts.RemoteUser != "" || opts.RemoteKey != "" {
		if settings.Remote == nil {
			settings.Remote = &organize.RemoteSettings{}
		}
		if opts.RemoteHost != "" {
			settings.Remote.Host = opts.RemoteHost
		}
		if opts.RemoteUser != "" {
			settings.Remote.User = opts.RemoteUser
		}
		if opts.RemoteKey != "" {
			settings.Remote.KeyPath = opts.RemoteKey
		}
	}

	if opts.SSHConfig != "" && settings.Remote != nil {
		f, err := fs.Open(opts.SSHConfig)
		if err != nil {
			return nil, fmt.Errorf("open ssh config: %w", err)
		}
		resolved, err := remote.ResolveAlias(f, *settings.Remote)
		f.Close()
		if err != nil {
			return nil, err
		}
		settings.Remote = &resolved
	}

	if opts.Output != "" {
		settings.Report.OutputDir = opts.Output
	}
	if opts.NoColors {
		settings.Report.UseColors = false
	}
	return settings, nil
}

// collaboratorsFor builds one collaborator bundle per requested
// environment. The remote environment talks to the configured host over
// ssh; every other environment is a directory on this machine.
func collaboratorsFor(settings *organize.Settings, options organize.ExecutionOptions, fs afero.Fs, runner remote.Runner, logger ports.Logger) (ports.Collaborators, error) {
	collaborators := ports.Collaborators{}
	for _, env := range options.Environments {
		root := settings.RootFor(env)

		if env == organize.EnvironmentEC2 {
			if settings.Remote == nil || runner == nil {
				return nil, pkgerrors.NewValidationError("remote", "environment ec2 requires a remote host (configure remote.host or pass --remote-host)", nil)
			}
			if root == "" {
				root = organize.DefaultRemoteRoot
			}
			host, err := remote.NewHost(runner, remote.ConfigFromSettings(*settings.Remote), root,
				remote.WithEnvironment(env),
				remote.WithIgnore(settings.Ignore),
				remote.WithLayout(settings.Directories),
				remote.WithDryRun(options.DryRun),
				remote.WithLogger(logger),
			)
			if err != nil {
				return nil, err
			}
			classifier, err := classify.New(settings.Rules, settings.Preserve, classify.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			collaborators[env] = ports.CollaboratorSet{
				RootPath:    root,
				Scanner:     host,
				Classifier:  classifier,
				Mover:       host,
				Backup:      host,
				Directories: host,
				Permissions: host,
				Validator:   host,
				Connection:  host,
			}
			continue
		}

		if root == "" {
			root = "."
		}
		ws, err := local.NewWorkspace(fs, root,
			local.WithEnvironment(env),
			local.WithIgnore(settings.Ignore),
			local.WithLayout(settings.Directories),
			local.WithBackupDir(settings.BackupDir),
			local.WithDryRun(options.DryRun),
			local.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		classifier, err := classify.New(settings.Rules, settings.Preserve,
			classify.WithContentSniffing(ws.Open),
			classify.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		collaborators[env] = ports.CollaboratorSet{
			RootPath:    root,
			Scanner:     ws,
			Classifier:  classifier,
			Mover:       ws,
			Backup:      ws,
			Directories: ws,
			Permissions: ws,
			Validator:   ws,
		}
	}
	return collaborators, nil
}

// buildApp wires every collaborator of a run. runner may be nil when no
// remote host is configured.
func buildApp(settings *organize.Settings, options organize.ExecutionOptions, mergeScans bool, fs afero.Fs, runner remote.Runner, logger ports.Logger) (*app, error) {
	collaborators, err := collaboratorsFor(settings, options, fs, runner, logger)
	if err != nil {
		return nil, err
	}

	reporter, err := report.New(fs,
		report.WithOutputDir(settings.Report.OutputDir),
		report.WithFormats(settings.Report.Formats),
		report.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	publisher := events.NewLoggingPublisher(logger)
	engineOpts := []execution.Option{
		execution.WithLogger(logger),
		execution.WithEvents(publisher),
		execution.WithReportWriter(reporter),
		execution.WithMergeScans(mergeScans),
		execution.WithSyncPaths(settings.Sync.Source, settings.Sync.Destination),
		execution.WithSyncExcludes(settings.Sync.Exclude),
	}

	if settings.Remote != nil && runner != nil {
		localTree := envsync.NewFsTree(fs, settings.Sync.Source, organize.EnvironmentLocal)
		remoteTree := remote.NewTree(runner, remote.ConfigFromSettings(*settings.Remote), settings.Sync.Destination, organize.EnvironmentEC2)
		engineOpts = append(engineOpts, execution.WithSyncManager(envsync.NewManager(localTree, remoteTree, envsync.WithLogger(logger))))
	}

	return &app{
		engine:    execution.NewEngine(collaborators, engineOpts...),
		publisher: publisher,
		reporter:  reporter,
	}, nil
}

func newRunner(settings *organize.Settings, logger ports.Logger) remote.Runner {
	if settings.Remote == nil {
		return nil
	}
	return remote.NewSSHRunner(remote.ConfigFromSettings(*settings.Remote), logger)
}
