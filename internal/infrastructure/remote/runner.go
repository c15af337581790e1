package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	apperrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

const (
	defaultPort    = 22
	defaultTimeout = 30 * time.Second
)

// SSHConfig holds the connection parameters for the remote host.
type SSHConfig struct {
	Host    string
	User    string
	KeyPath string
	Port    int
	Timeout time.Duration
}

// ConfigFromSettings converts loaded settings, applying defaults.
func ConfigFromSettings(settings organize.RemoteSettings) SSHConfig {
	cfg := SSHConfig{
		Host:    settings.Host,
		User:    settings.User,
		KeyPath: settings.KeyPath,
		Port:    settings.Port,
		Timeout: settings.Timeout,
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// Address returns user@host, or host when no user is configured.
func (c SSHConfig) Address() string {
	if c.User == "" {
		return c.Host
	}
	return c.User + "@" + c.Host
}

// Result is what a remote command produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a shell script on the remote host. A non-zero exit is
// reported through Result, not as an error.
type Runner interface {
	Run(ctx context.Context, script string) (Result, error)
}

// SSHRunner runs scripts through the ssh binary.
type SSHRunner struct {
	config SSHConfig
	binary string
	logger ports.Logger
}

// NewSSHRunner returns a runner for cfg.
func NewSSHRunner(cfg SSHConfig, logger ports.Logger) *SSHRunner {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &SSHRunner{
		config: cfg,
		binary: "ssh",
		logger: logger.With("layer", "infrastructure", "component", "ssh", "host", cfg.Host),
	}
}

// Args returns the ssh arguments used to run script.
func (r *SSHRunner) Args(script string) []string {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", "ConnectTimeout=" + strconv.Itoa(int(r.config.Timeout.Seconds())),
		"-p", strconv.Itoa(r.config.Port),
	}
	if r.config.KeyPath != "" {
		args = append(args, "-i", r.config.KeyPath)
	}
	return append(args, r.config.Address(), script)
}

// Run executes script over ssh, bounded by the configured timeout.
func (r *SSHRunner) Run(ctx context.Context, script string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, r.Args(script)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	r.logger.Debug(ctx, "remote command finished", "script", script, "duration_ms", time.Since(start).Milliseconds())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		return result, fmt.Errorf("ssh %s: %w", r.config.Address(), err)
	}
}

// session wraps a Runner with the error shape collaborators return.
type session struct {
	runner Runner
	host   string
}

// exec runs script and fails on a non-zero exit.
func (s session) exec(ctx context.Context, script string) (string, error) {
	res, err := s.runner.Run(ctx, script)
	if err != nil {
		return "", apperrors.NewCommandError(s.host, script, -1, "", err)
	}
	if res.ExitCode != 0 {
		return res.Stdout, apperrors.NewCommandError(s.host, script, res.ExitCode, strings.TrimSpace(res.Stderr), nil)
	}
	return res.Stdout, nil
}

// output runs script and returns stdout whatever the exit code.
func (s session) output(ctx context.Context, script string) (string, error) {
	res, err := s.runner.Run(ctx, script)
	if err != nil {
		return "", apperrors.NewCommandError(s.host, script, -1, "", err)
	}
	return res.Stdout, nil
}

// quote renders s as a single-quoted shell word.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, " ")
}

func lines(out string) []string {
	var result []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}
