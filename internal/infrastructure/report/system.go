package report

import (
	"runtime"

	"github.com/go-git/go-git/v5"
)

// SystemInfo describes the machine and checkout a report was produced on.
type SystemInfo struct {
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	GoVersion   string `json:"goVersion"`
	WorkingDir  string `json:"workingDir"`
	HeapInUse   uint64 `json:"heapInUse"`
	GitBranch   string `json:"gitBranch,omitempty"`
	GitRevision string `json:"gitRevision,omitempty"`
}

// CollectSystemInfo samples the runtime and, when dir is inside a git
// repository, its checked out branch and commit.
func CollectSystemInfo(dir string) SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	info := SystemInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		GoVersion:  runtime.Version(),
		WorkingDir: dir,
		HeapInUse:  mem.HeapInuse,
	}
	info.GitBranch, info.GitRevision = revision(dir)
	return info
}

func revision(dir string) (branch, commit string) {
	if dir == "" {
		return "", ""
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", ""
	}
	head, err := repo.Head()
	if err != nil {
		return "", ""
	}
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return branch, head.Hash().String()
}
