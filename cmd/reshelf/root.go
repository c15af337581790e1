package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "RESHELF"

// Viper keys shared by every command.
const (
	keyConfig     = "config"
	keySSHConfig  = "ssh-config"
	keyOutput     = "output"
	keyLogLevel   = "log-level"
	keyLogFormat  = "log-format"
	keyNoColors   = "no-colors"
	keyVerbose    = "verbose"
	keyRemoteHost = "remote-host"
	keyRemoteUser = "remote-user"
	keyRemoteKey  = "remote-key"
)

// globalOptions are decoded from the persistent flags, RESHELF_* variables
// and their defaults.
type globalOptions struct {
	Config     string `mapstructure:"config"`
	SSHConfig  string `mapstructure:"ssh-config"`
	Output     string `mapstructure:"output"`
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
	NoColors   bool   `mapstructure:"no-colors"`
	Verbose    bool   `mapstructure:"verbose"`
	RemoteHost string `mapstructure:"remote-host"`
	RemoteUser string `mapstructure:"remote-user"`
	RemoteKey  string `mapstructure:"remote-key"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "reshelf",
		Short:         "reshelf moves flat files into their intended directory structure across local and remote environments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "Path to the run configuration file")
	flags.StringP(keySSHConfig, "s", "", "OpenSSH client config used to resolve the remote host alias")
	flags.StringP(keyOutput, "o", "", "Directory reports are written to")
	flags.String(keyLogLevel, "info", "Log level (debug, info, warn, error)")
	flags.String(keyLogFormat, "text", "Log format (text, json, logfmt, zerolog)")
	flags.Bool(keyNoColors, false, "Disable colored output")
	flags.BoolP(keyVerbose, "v", false, "Enable verbose logging")
	flags.String(keyRemoteHost, "", "Remote host, overriding the configuration file")
	flags.String(keyRemoteUser, "", "Remote user, overriding the configuration file")
	flags.String(keyRemoteKey, "", "Private key for the remote host, overriding the configuration file")

	cmd.AddCommand(newRunCmd(v))
	cmd.AddCommand(newPlanCmd(v))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
