package organize

import "time"

// SyncDirection controls which side of a sync is authoritative.
type SyncDirection string

const (
	SyncLocalToRemote SyncDirection = "local_to_ec2"
	SyncRemoteToLocal SyncDirection = "ec2_to_local"
	SyncBidirectional SyncDirection = "bidirectional"
)

// SyncOptions tunes a cross-environment sync.
type SyncOptions struct {
	Direction         SyncDirection
	DryRun            bool
	OverwriteExisting bool
	SyncPermissions   bool
	CreateBackup      bool
	ExcludePatterns   []string
}

// SyncStatistics counts what a sync touched.
type SyncStatistics struct {
	ProcessedFiles     int
	CreatedDirectories int
	SyncedFiles        int
	PermissionUpdates  int
	SkippedItems       int
	TotalDataSize      int64
}

// SyncedItem is one action a sync performed or, on dry-run, planned.
type SyncedItem struct {
	Path   string
	Action string
	From   Environment
	To     Environment
	Size   int64
}

// SyncResult summarises one ExecuteSync call.
type SyncResult struct {
	SyncID     string
	Direction  SyncDirection
	DryRun     bool
	Statistics SyncStatistics
	Items      []SyncedItem
	Failed     []string
	Duration   time.Duration
}

// InconsistencyType classifies a cross-environment difference.
type InconsistencyType string

const (
	InconsistencyMissing    InconsistencyType = "missing"
	InconsistencySize       InconsistencyType = "size_mismatch"
	InconsistencyPermission InconsistencyType = "permission_mismatch"
	InconsistencyContent    InconsistencyType = "content_mismatch"
)

// Inconsistency is one difference found by VerifyConsistency.
type Inconsistency struct {
	Path    string
	Type    InconsistencyType
	Details string
	// Diff holds a unified diff for small text content mismatches.
	Diff string
}

// ConsistencyReport is the outcome of comparing environments.
type ConsistencyReport struct {
	IsConsistent    bool
	Inconsistencies []Inconsistency
	TotalItems      int
	ConsistentItems int
	// ListingDiff is a unified diff of both sides' relative path listings.
	ListingDiff string
}

// MatchRate returns the share of consistent items as a percentage.
func (r ConsistencyReport) MatchRate() Rate {
	if r.TotalItems == 0 {
		return ComputedRate(100)
	}
	return ComputedRate(float64(r.ConsistentItems) / float64(r.TotalItems) * 100)
}
