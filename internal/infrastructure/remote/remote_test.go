package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/envsync"
	apperrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

type fakeRunner struct {
	mu      sync.Mutex
	scripts []string
	handler func(script string) (Result, error)
}

func (f *fakeRunner) Run(_ context.Context, script string) (Result, error) {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()
	if f.handler == nil {
		return Result{}, nil
	}
	return f.handler(script)
}

func (f *fakeRunner) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

var testConfig = SSHConfig{Host: "10.0.0.5", User: "ubuntu", Port: 22, Timeout: time.Second}

func newHost(t *testing.T, runner Runner, opts ...Option) *Host {
	t.Helper()
	h, err := NewHost(runner, testConfig, "/srv/app", opts...)
	require.NoError(t, err)
	return h
}

func TestConfigFromSettingsAppliesDefaults(t *testing.T) {
	cfg := ConfigFromSettings(organize.RemoteSettings{Host: "example.com", User: "deploy"})
	assert.Equal(t, 22, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "deploy@example.com", cfg.Address())
	assert.Equal(t, "example.com", SSHConfig{Host: "example.com"}.Address())
}

func TestSSHRunnerArgs(t *testing.T) {
	runner := NewSSHRunner(SSHConfig{Host: "h", User: "u", KeyPath: "/keys/id", Port: 2222, Timeout: 5 * time.Second}, nil)

	args := runner.Args("echo ok")
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-p 2222")
	assert.Contains(t, joined, "-i /keys/id")
	assert.Contains(t, joined, "ConnectTimeout=5")
	assert.Contains(t, joined, "BatchMode=yes")
	assert.Equal(t, "u@h", args[len(args)-2])
	assert.Equal(t, "echo ok", args[len(args)-1])
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, quote("plain"))
	assert.Equal(t, `'it'\''s'`, quote("it's"))
	assert.Equal(t, `'a' 'b c'`, quoteAll([]string{"a", "b c"}))
}

func TestNewHostValidates(t *testing.T) {
	_, err := NewHost(nil, testConfig, "/srv")
	require.Error(t, err)
	_, err = NewHost(&fakeRunner{}, testConfig, "")
	require.Error(t, err)
	_, err = NewHost(&fakeRunner{}, testConfig, "/srv", WithIgnore([]string{"[a-"}))
	require.Error(t, err)
}

func TestTestConnection(t *testing.T) {
	ok := &fakeRunner{handler: func(string) (Result, error) { return Result{Stdout: "ok\n"}, nil }}
	require.NoError(t, newHost(t, ok).TestConnection(context.Background()))
	assert.Equal(t, []string{"echo ok"}, ok.calls())

	garbled := &fakeRunner{handler: func(string) (Result, error) { return Result{Stdout: "motd"}, nil }}
	require.Error(t, newHost(t, garbled).TestConnection(context.Background()))

	refused := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stderr: "Connection refused", ExitCode: 255}, nil
	}}
	err := newHost(t, refused).TestConnection(context.Background())
	var cmdErr *apperrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 255, cmdErr.ExitCode)
	assert.Equal(t, "10.0.0.5", cmdErr.Host)
	assert.Equal(t, "Connection refused", cmdErr.Stderr)

	unreachable := &fakeRunner{handler: func(string) (Result, error) { return Result{}, errors.New("dial timeout") }}
	err = newHost(t, unreachable).TestConnection(context.Background())
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, -1, cmdErr.ExitCode)
}

func TestDetectFlatFiles(t *testing.T) {
	runner := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stdout: strings.Join([]string{
			"/srv/app/zeta.sh\t12\t755\t1700000000.5000000000",
			"/srv/app/alpha.md\t3\t644\t1700000100.0000000000",
			"/srv/app/yarn.lock\t9\t644\t1700000100.0000000000",
			"garbage line",
		}, "\n") + "\n"}, nil
	}}
	h := newHost(t, runner, WithIgnore([]string{"*.lock"}))

	files, err := h.DetectFlatFiles(context.Background(), organize.EnvironmentEC2)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "alpha.md", files[0].Name)
	assert.Equal(t, "zeta.sh", files[1].Name)
	assert.Equal(t, "/srv/app/zeta.sh", files[1].Path)
	assert.Equal(t, ".sh", files[1].Extension)
	assert.Equal(t, int64(12), files[1].Size)
	assert.Equal(t, "0755", files[1].Permissions)
	assert.Equal(t, organize.EnvironmentEC2, files[1].Environment)
	assert.Equal(t, "zeta.sh", files[1].RelativePath)
	assert.Equal(t, time.Unix(1700000000, 500000000).UTC(), files[1].LastModified)

	script := runner.calls()[0]
	assert.Contains(t, script, "find '/srv/app' -maxdepth 1 -type f")
	assert.Contains(t, script, "-printf '%p\\t%s\\t%m\\t%T@\\n'")
}

func TestDetectFlatFilesCommandFailure(t *testing.T) {
	runner := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stderr: "find: '/srv/app': No such file or directory", ExitCode: 1}, nil
	}}

	_, err := newHost(t, runner).DetectFlatFiles(context.Background(), organize.EnvironmentEC2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such file or directory")
}

func TestMoveFiles(t *testing.T) {
	runner := &fakeRunner{handler: func(script string) (Result, error) {
		switch {
		case strings.Contains(script, "'/srv/app/broken.sh'"):
			return Result{Stderr: "mv: cannot move", ExitCode: 1}, nil
		case strings.Contains(script, "'/srv/app/notes.md'"):
			return Result{Stdout: "/srv/app/docs/guides/notes-1.md\n"}, nil
		default:
			return Result{Stdout: "/srv/app/development/scripts/deployment/deploy.sh\n"}, nil
		}
	}}
	h := newHost(t, runner)

	deploy := organize.FileInfo{Path: "/srv/app/deploy.sh", Name: "deploy.sh", Environment: organize.EnvironmentEC2}
	notes := organize.FileInfo{Path: "/srv/app/notes.md", Name: "notes.md", Environment: organize.EnvironmentEC2}
	broken := organize.FileInfo{Path: "/srv/app/broken.sh", Name: "broken.sh", Environment: organize.EnvironmentEC2}
	foreign := organize.FileInfo{Path: "/srv/app/local.sh", Name: "local.sh", Environment: organize.EnvironmentLocal}

	result, err := h.MoveFiles(context.Background(),
		[]organize.FileInfo{deploy, notes, broken, foreign},
		[]organize.ClassificationResult{
			{File: deploy, TargetPath: "development/scripts/deployment"},
			{File: notes, TargetPath: "docs/guides"},
			{File: broken, TargetPath: "development/scripts/utilities"},
			{File: foreign, TargetPath: "development/scripts/utilities"},
		},
		organize.MoveOptions{Environment: organize.EnvironmentEC2},
	)
	require.NoError(t, err)

	require.Len(t, result.MovedFiles, 2)
	assert.Equal(t, "development/scripts/deployment/deploy.sh", result.MovedFiles[0].RelativePath)
	assert.Equal(t, "notes-1.md", result.MovedFiles[1].Name)
	assert.Equal(t, "docs/guides/notes-1.md", result.MovedFiles[1].RelativePath)
	assert.Equal(t, "/srv/app/notes.md", result.MovedFiles[1].OriginalPath)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "/srv/app/broken.sh", result.Failed[0].Path)
	assert.Contains(t, result.Failed[0].Reason, "mv: cannot move")

	calls := runner.calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0], "mkdir -p '/srv/app/development/scripts/deployment'")
	assert.Contains(t, calls[0], "mv -n -- '/srv/app/deploy.sh' \"$dst\"")
}

func TestMoveFilesDryRun(t *testing.T) {
	runner := &fakeRunner{}
	h := newHost(t, runner)

	a := organize.FileInfo{Path: "/srv/app/a.txt", Name: "a.txt"}
	b := organize.FileInfo{Path: "/srv/app/b.txt", Name: "a.txt"}
	result, err := h.MoveFiles(context.Background(), []organize.FileInfo{a, b}, []organize.ClassificationResult{
		{File: a, TargetPath: "docs"},
		{File: b, TargetPath: "docs"},
	}, organize.MoveOptions{DryRun: true})
	require.NoError(t, err)

	require.Len(t, result.MovedFiles, 2)
	assert.Equal(t, "/srv/app/docs/a.txt", result.MovedFiles[0].Path)
	assert.Equal(t, "/srv/app/docs/a-1.txt", result.MovedFiles[1].Path)
	assert.Empty(t, runner.calls())
}

func TestMoveScriptOverwrite(t *testing.T) {
	script := moveScript("/srv/app/a.txt", "/srv/app/docs", "a.txt", true)
	assert.Contains(t, script, "mv -f -- '/srv/app/a.txt' '/srv/app/docs/a.txt'")
}

func TestSetPermissionsGroupsByMode(t *testing.T) {
	runner := &fakeRunner{handler: func(script string) (Result, error) {
		if strings.HasPrefix(script, "chmod 0600") {
			return Result{Stderr: "Operation not permitted", ExitCode: 1}, nil
		}
		return Result{}, nil
	}}
	h := newHost(t, runner)

	files := []organize.FileInfo{
		{Path: "/srv/app/s/a.sh"},
		{Path: "/srv/app/s/b.sh"},
		{Path: "/srv/app/c/key.pem"},
		{Path: "/srv/app/unclassified"},
	}
	classifications := []organize.ClassificationResult{
		{File: organize.FileInfo{Path: "/srv/app/s/a.sh"}, Permissions: "0755"},
		{File: organize.FileInfo{Path: "/srv/app/s/b.sh"}, Permissions: "755"},
		{File: organize.FileInfo{Path: "/srv/app/c/key.pem"}, Permissions: "0600"},
	}

	summary, err := h.SetPermissions(context.Background(), files, classifications, organize.EnvironmentEC2)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalFiles)
	assert.Equal(t, 2, summary.SuccessfulUpdates)
	assert.Equal(t, 1, summary.FailedUpdates)
	assert.Equal(t, 1, summary.Errors["command_failed"])
	assert.Equal(t, []string{
		"chmod 0755 -- '/srv/app/s/a.sh' '/srv/app/s/b.sh'",
		"chmod 0600 -- '/srv/app/c/key.pem'",
	}, runner.calls())
}

func TestValidatePermissions(t *testing.T) {
	runner := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stdout: "755\t/srv/app/a.sh\n644\t/srv/app/b.sh\n", ExitCode: 1}, nil
	}}
	h := newHost(t, runner)

	files := []organize.FileInfo{{Path: "/srv/app/a.sh"}, {Path: "/srv/app/b.sh"}, {Path: "/srv/app/gone.sh"}}
	classifications := []organize.ClassificationResult{
		{File: files[0], Permissions: "0755"},
		{File: files[1], Permissions: "0755"},
		{File: files[2], Permissions: "0755"},
	}

	validation, err := h.ValidatePermissions(context.Background(), files, classifications, organize.EnvironmentEC2)
	require.NoError(t, err)

	assert.False(t, validation.Valid)
	require.Len(t, validation.Issues, 2)
	assert.Equal(t, organize.PermissionIssue{Path: "/srv/app/b.sh", Expected: "0755", Actual: "0644", Issue: "mode mismatch"}, validation.Issues[0])
	assert.Equal(t, "file not found", validation.Issues[1].Issue)
}

func TestCreateEnvironmentStructure(t *testing.T) {
	runner := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stdout: "exists\tdocs/guides\ncreated\tarchive/unknown\n"}, nil
	}}
	h := newHost(t, runner, WithLayout([]string{"docs/guides", "archive/unknown"}))

	result, err := h.CreateEnvironmentStructure(context.Background(), "/srv/app", organize.EnvironmentEC2)
	require.NoError(t, err)

	assert.Equal(t, []string{"archive/unknown"}, result.Created)
	assert.Equal(t, []string{"docs/guides"}, result.Existing)
	script := runner.calls()[0]
	assert.Contains(t, script, "if [ -d '/srv/app/docs/guides' ]")
	assert.Contains(t, script, "mkdir -p '/srv/app/archive/unknown'")
}

func TestCreateEnvironmentStructureDryRunSkipsMkdir(t *testing.T) {
	runner := &fakeRunner{}
	h := newHost(t, runner, WithLayout([]string{"docs"}), WithDryRun(true))

	_, err := h.CreateEnvironmentStructure(context.Background(), "", organize.EnvironmentEC2)
	require.NoError(t, err)
	assert.NotContains(t, runner.calls()[0], "mkdir")
	assert.Contains(t, runner.calls()[0], "'/srv/app/docs'")
}

func TestCreateBackup(t *testing.T) {
	runner := &fakeRunner{handler: func(script string) (Result, error) {
		switch {
		case strings.HasPrefix(script, "mkdir -p"):
			return Result{Stdout: "/home/ubuntu/file-organization-backups/backup-ec2-1\n"}, nil
		case strings.Contains(script, "stat -c"):
			return Result{Stdout: "5\ta.txt\n6\tb.sh\n"}, nil
		case strings.Contains(script, "xxh64sum"):
			return Result{Stdout: "0123abcd  a.txt\n4567ef01  b.sh\n"}, nil
		default:
			return Result{}, nil
		}
	}}
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newHost(t, runner, WithClock(func() time.Time { return created }))

	result, err := h.CreateBackup(context.Background(), []string{"/srv/app/a.txt", "/srv/app/b.sh"}, "backup-ec2-1")
	require.NoError(t, err)

	assert.Equal(t, "/home/ubuntu/file-organization-backups/backup-ec2-1", result.BackupPath)
	assert.Equal(t, organize.EnvironmentEC2, result.Environment)
	assert.Equal(t, int64(11), result.TotalSize)
	assert.Equal(t, created, result.CreatedAt)
	require.Len(t, result.Files, 2)
	assert.Equal(t, organize.BackupFile{
		OriginalPath: "/srv/app/b.sh",
		BackupPath:   "/home/ubuntu/file-organization-backups/backup-ec2-1/b.sh",
		Size:         6,
		Checksum:     "4567ef01",
	}, result.Files[1])

	calls := runner.calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[0], `mkdir -p "$HOME"/'file-organization-backups/backup-ec2-1'`)
	assert.Contains(t, calls[0], "cp -p -- '/srv/app/a.txt' '/srv/app/b.sh'")
	assert.Contains(t, calls[3], "metadata.json")
}

func TestCreateBackupDryRun(t *testing.T) {
	runner := &fakeRunner{}
	h := newHost(t, runner, WithDryRun(true), WithBackupRoot("/var/backups"))

	result, err := h.CreateBackup(context.Background(), []string{"/srv/app/a.txt"}, "b1")
	require.NoError(t, err)
	assert.Empty(t, runner.calls())
	require.Len(t, result.Files, 1)
	assert.Equal(t, "/var/backups/b1/a.txt", result.Files[0].BackupPath)
}

func TestTreeList(t *testing.T) {
	runner := &fakeRunner{handler: func(string) (Result, error) {
		return Result{Stdout: strings.Join([]string{
			"docs\td\t4096\t755",
			"docs/a.md\tf\t3\t644",
			"node_modules\td\t4096\t755",
			"node_modules/x.js\tf\t1\t644",
			"link\tl\t7\t777",
		}, "\n")}, nil
	}}
	tree := NewTree(runner, testConfig, "/home/ubuntu", organize.EnvironmentEC2)

	entries, err := tree.List(context.Background(), func(rel string, _ bool) bool { return rel == "node_modules" })
	require.NoError(t, err)

	assert.Equal(t, []envsync.Entry{
		{Path: "docs", Mode: 0o755, IsDir: true},
		{Path: "docs/a.md", Size: 3, Mode: 0o644},
	}, entries)
	assert.Contains(t, runner.calls()[0], "[ -d '/home/ubuntu' ] || exit 0")
}

func TestTreeWriteAndRead(t *testing.T) {
	runner := &fakeRunner{handler: func(script string) (Result, error) {
		if strings.HasPrefix(script, "cat") {
			return Result{Stdout: "payload"}, nil
		}
		return Result{}, nil
	}}
	tree := NewTree(runner, testConfig, "/home/ubuntu", organize.EnvironmentEC2).Rooted("/opt/app")
	ctx := context.Background()

	require.NoError(t, tree.WriteFile(ctx, "cfg/app.yml", []byte("key: v"), 0o600))
	data, err := tree.ReadFile(ctx, "cfg/app.yml")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	require.NoError(t, tree.Chmod(ctx, "cfg/app.yml", 0o644))
	require.NoError(t, tree.MkdirAll(ctx, "logs"))

	calls := runner.calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[0], "mkdir -p '/opt/app/cfg'")
	assert.Contains(t, calls[0], quote(base64.StdEncoding.EncodeToString([]byte("key: v"))))
	assert.Contains(t, calls[0], "chmod 0600 '/opt/app/cfg/app.yml'")
	assert.Equal(t, "cat -- '/opt/app/cfg/app.yml'", calls[1])
	assert.Equal(t, "chmod 0644 '/opt/app/cfg/app.yml'", calls[2])
	assert.Equal(t, "mkdir -p '/opt/app/logs'", calls[3])
	assert.Equal(t, "/opt/app", tree.Root())
}
