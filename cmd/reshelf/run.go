package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/tui"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"execute"},
		Short:   "Scan, classify and move flat files in every requested environment",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindCommand(v, cmd); err != nil {
				return err
			}
			return runOrganize(cmd, v, afero.NewOsFs())
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runOrganize(cmd *cobra.Command, v *viper.Viper, fs afero.Fs) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	globals, err := decodeGlobals(v)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	interactive := isTerminal(out)

	base, err := newLogger(globals, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger := base
	if interactive {
		// Log lines would tear the live display; replay them afterwards.
		buffer := logging.NewEventBuffer(0)
		logger = logging.NewBufferedLogger(buffer)
		defer buffer.Flush(base)
	}

	settings, err := loadSettings(ctx, globals, fs, logger)
	if err != nil {
		return err
	}
	options, mergeScans, err := decodeRunOptions(v, settings.Defaults)
	if err != nil {
		return err
	}

	runner := newRunner(settings, logger)
	a, err := buildApp(settings, options, mergeScans, fs, runner, logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := tui.NewTracker(organize.Plan(options), cancel,
		tui.WithOutput(out),
		tui.WithInteractive(interactive),
		tui.WithInterval(settings.Report.UpdateInterval),
	)
	if err := tracker.Attach(a.publisher); err != nil {
		return err
	}
	if err := a.reporter.Follow(a.publisher); err != nil {
		return err
	}
	defer a.reporter.Unfollow()

	tracker.Start(runCtx)
	result := a.engine.Execute(runCtx, options)
	if err := tracker.Stop(); err != nil {
		logger.Warn(ctx, "progress display failed", "error", err)
	}

	for _, path := range a.reporter.Generated() {
		fmt.Fprintf(out, "Report: %s\n", path)
	}

	if !result.Success {
		return &exitError{code: 1}
	}
	return nil
}
