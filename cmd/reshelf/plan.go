package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the phases a run with the same flags would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindCommand(v, cmd); err != nil {
				return err
			}
			return runPlan(cmd, v, afero.NewOsFs())
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runPlan(cmd *cobra.Command, v *viper.Viper, fs afero.Fs) error {
	globals, err := decodeGlobals(v)
	if err != nil {
		return err
	}
	logger, err := newLogger(globals, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd.Context(), globals, fs, logger)
	if err != nil {
		return err
	}
	options, _, err := decodeRunOptions(v, settings.Defaults)
	if err != nil {
		return err
	}
	if err := options.Validate(); err != nil {
		return err
	}

	envs := make([]string, 0, len(options.Environments))
	for _, env := range options.Environments {
		envs = append(envs, env.String())
	}

	out := cmd.OutOrStdout()
	phases := organize.Plan(options)
	fmt.Fprintf(out, "Mode %s on %s", options.Mode, strings.Join(envs, ", "))
	if options.DryRun {
		fmt.Fprint(out, " (dry run)")
	}
	fmt.Fprintln(out)
	for i, phase := range phases {
		if phase.PerEnvironment() {
			fmt.Fprintf(out, "%2d. %s [%s]\n", i+1, phase, strings.Join(envs, ", "))
			continue
		}
		fmt.Fprintf(out, "%2d. %s\n", i+1, phase)
	}
	return nil
}
