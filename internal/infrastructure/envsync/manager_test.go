package envsync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

type fixture struct {
	localFs  afero.Fs
	remoteFs afero.Fs
	manager  *Manager
}

func newFixture(t *testing.T, local, remote map[string]string) fixture {
	t.Helper()
	f := fixture{localFs: afero.NewMemMapFs(), remoteFs: afero.NewMemMapFs()}
	seed(t, f.localFs, "/project", local)
	seed(t, f.remoteFs, "/home/ubuntu", remote)
	f.manager = NewManager(
		NewFsTree(f.localFs, "/project", organize.EnvironmentLocal),
		NewFsTree(f.remoteFs, "/home/ubuntu", organize.EnvironmentEC2),
	)
	return f
}

func seed(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(root, 0o755))
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func actions(items []organize.SyncedItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.Path] = item.Action
	}
	return out
}

func TestExecuteSyncBidirectional(t *testing.T) {
	f := newFixture(t,
		map[string]string{"docs/guide.md": "guide", "shared.txt": "local", "node_modules/x.js": "x"},
		map[string]string{"remote-only.sh": "echo", "shared.txt": "remote!"},
	)
	ctx := context.Background()

	result, err := f.manager.ExecuteSync(ctx, "", "", organize.SyncOptions{
		Direction:       organize.SyncBidirectional,
		SyncPermissions: true,
		ExcludePatterns: organize.DefaultSyncExcludes(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SyncID)
	assert.Equal(t, organize.SyncBidirectional, result.Direction)
	assert.Equal(t, 2, result.Statistics.SyncedFiles)
	assert.Equal(t, 1, result.Statistics.CreatedDirectories)
	assert.Equal(t, 1, result.Statistics.SkippedItems)
	assert.Equal(t, int64(9), result.Statistics.TotalDataSize)
	assert.Equal(t, 4, result.Statistics.ProcessedFiles)
	assert.Empty(t, result.Failed)

	got := actions(result.Items)
	assert.Equal(t, "create_directory", got["docs"])
	assert.Equal(t, "copy", got["docs/guide.md"])
	assert.Equal(t, "copy", got["remote-only.sh"])
	assert.Equal(t, "skip_conflict", got["shared.txt"])
	assert.NotContains(t, got, "node_modules")

	assert.Equal(t, "guide", read(t, f.remoteFs, "/home/ubuntu/docs/guide.md"))
	assert.Equal(t, "echo", read(t, f.localFs, "/project/remote-only.sh"))
	assert.Equal(t, "remote!", read(t, f.remoteFs, "/home/ubuntu/shared.txt"))

	exists, err := afero.Exists(f.remoteFs, "/home/ubuntu/node_modules")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecuteSyncOverwriteLocalWins(t *testing.T) {
	f := newFixture(t,
		map[string]string{"shared.txt": "local"},
		map[string]string{"shared.txt": "remote!"},
	)

	result, err := f.manager.ExecuteSync(context.Background(), "", "", organize.SyncOptions{
		Direction:         organize.SyncBidirectional,
		OverwriteExisting: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Statistics.SyncedFiles)
	assert.Equal(t, "local", read(t, f.remoteFs, "/home/ubuntu/shared.txt"))
}

func TestExecuteSyncDirections(t *testing.T) {
	tests := []struct {
		name        string
		direction   organize.SyncDirection
		localGains  bool
		remoteGains bool
	}{
		{name: "local to remote", direction: organize.SyncLocalToRemote, remoteGains: true},
		{name: "remote to local", direction: organize.SyncRemoteToLocal, localGains: true},
		{name: "bidirectional", direction: organize.SyncBidirectional, localGains: true, remoteGains: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"l.txt": "l"}, map[string]string{"r.txt": "r"})

			_, err := f.manager.ExecuteSync(context.Background(), "", "", organize.SyncOptions{Direction: tt.direction})
			require.NoError(t, err)

			localHas, err := afero.Exists(f.localFs, "/project/r.txt")
			require.NoError(t, err)
			remoteHas, err := afero.Exists(f.remoteFs, "/home/ubuntu/l.txt")
			require.NoError(t, err)
			assert.Equal(t, tt.localGains, localHas)
			assert.Equal(t, tt.remoteGains, remoteHas)
		})
	}
}

func TestExecuteSyncDryRunPlansOnly(t *testing.T) {
	f := newFixture(t, map[string]string{"l.txt": "l"}, nil)

	result, err := f.manager.ExecuteSync(context.Background(), "", "", organize.SyncOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Statistics.SyncedFiles)
	exists, err := afero.Exists(f.remoteFs, "/home/ubuntu/l.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecuteSyncPermissions(t *testing.T) {
	f := newFixture(t, map[string]string{"run.sh": "x"}, map[string]string{"run.sh": "x"})
	require.NoError(t, f.localFs.Chmod("/project/run.sh", 0o755))

	result, err := f.manager.ExecuteSync(context.Background(), "", "", organize.SyncOptions{SyncPermissions: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Statistics.PermissionUpdates)
	info, err := f.remoteFs.Stat("/home/ubuntu/run.sh")
	require.NoError(t, err)
	assert.Equal(t, "0755", organize.FormatMode(info.Mode()))
}

func TestExecuteSyncUsesGivenRoots(t *testing.T) {
	f := newFixture(t, nil, nil)
	seed(t, f.localFs, "/elsewhere", map[string]string{"a.txt": "a"})

	_, err := f.manager.ExecuteSync(context.Background(), "/elsewhere", "/home/ubuntu/target", organize.SyncOptions{Direction: organize.SyncLocalToRemote})
	require.NoError(t, err)

	assert.Equal(t, "a", read(t, f.remoteFs, "/home/ubuntu/target/a.txt"))
}

type brokenTree struct {
	*FsTree
}

func (b brokenTree) Rooted(string) Tree { return b }

func (brokenTree) List(context.Context, SkipFunc) ([]Entry, error) {
	return nil, errors.New("connection reset")
}

func TestExecuteSyncListingFailure(t *testing.T) {
	local := NewFsTree(afero.NewMemMapFs(), "/project", organize.EnvironmentLocal)
	manager := NewManager(local, brokenTree{NewFsTree(afero.NewMemMapFs(), "/", organize.EnvironmentEC2)})

	_, err := manager.ExecuteSync(context.Background(), "", "", organize.SyncOptions{})
	require.ErrorContains(t, err, "connection reset")

	_, err = manager.VerifyConsistency(context.Background())
	require.Error(t, err)
}

func TestVerifyConsistency(t *testing.T) {
	f := newFixture(t,
		map[string]string{
			"same.txt":     "same",
			"only-local":   "l",
			"size.txt":     "short",
			"content.txt":  "line one\nline two\n",
			"mode.sh":      "x",
			"docs/keep.md": "k",
		},
		map[string]string{
			"same.txt":     "same",
			"only-remote":  "r",
			"size.txt":     "much longer",
			"content.txt":  "line one\nline 2!!\n",
			"mode.sh":      "x",
			"docs/keep.md": "k",
		},
	)
	require.NoError(t, f.remoteFs.Chmod("/home/ubuntu/mode.sh", 0o755))

	report, err := f.manager.VerifyConsistency(context.Background())
	require.NoError(t, err)

	// docs, docs/keep.md, same.txt, only-local, only-remote, size.txt, content.txt, mode.sh
	assert.Equal(t, 8, report.TotalItems)
	assert.Equal(t, 3, report.ConsistentItems)
	assert.False(t, report.IsConsistent)

	byPath := map[string]organize.Inconsistency{}
	for _, inc := range report.Inconsistencies {
		byPath[inc.Path] = inc
	}
	require.Len(t, byPath, 5)
	assert.Equal(t, organize.InconsistencyMissing, byPath["only-local"].Type)
	assert.Equal(t, "missing in ec2", byPath["only-local"].Details)
	assert.Equal(t, "missing in local", byPath["only-remote"].Details)
	assert.Equal(t, organize.InconsistencySize, byPath["size.txt"].Type)
	assert.Equal(t, organize.InconsistencyPermission, byPath["mode.sh"].Type)
	assert.Equal(t, organize.InconsistencyContent, byPath["content.txt"].Type)
	assert.Contains(t, byPath["content.txt"].Diff, "-line two")
	assert.Contains(t, byPath["content.txt"].Diff, "+line 2!!")

	assert.Contains(t, report.ListingDiff, "-only-local")
	assert.Contains(t, report.ListingDiff, "+only-remote")
	assert.InDelta(t, 37.5, report.MatchRate().Percent, 0.01)
}

func TestVerifyConsistencyIdenticalTrees(t *testing.T) {
	files := map[string]string{"a.txt": "a", "b/c.txt": "c"}
	f := newFixture(t, files, files)

	report, err := f.manager.VerifyConsistency(context.Background())
	require.NoError(t, err)

	assert.True(t, report.IsConsistent)
	assert.Equal(t, report.TotalItems, report.ConsistentItems)
	assert.Empty(t, report.ListingDiff)
}

func TestVerifyConsistencyFollowsLastSync(t *testing.T) {
	f := newFixture(t, nil, map[string]string{"stale.txt": "s"})
	seed(t, f.localFs, "/src", map[string]string{"a.txt": "a"})

	_, err := f.manager.ExecuteSync(context.Background(), "/src", "/home/ubuntu/dst", organize.SyncOptions{Direction: organize.SyncLocalToRemote})
	require.NoError(t, err)

	report, err := f.manager.VerifyConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsConsistent)
	assert.Equal(t, 1, report.TotalItems)
}
