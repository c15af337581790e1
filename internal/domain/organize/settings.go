package organize

import "time"

// Rule maps glob patterns to a target directory and file mode.
type Rule struct {
	Name           string
	Description    string
	FileType       FileType
	Patterns       []string
	Target         string
	Permissions    string
	Priority       int
	RequiresReview bool
}

// EnvironmentSettings configures one environment.
type EnvironmentSettings struct {
	Root string
}

// RemoteSettings holds the SSH parameters for the remote environment.
type RemoteSettings struct {
	Host    string
	User    string
	KeyPath string
	Port    int
	Timeout time.Duration
}

// Address returns user@host, or host when no user is configured.
func (r RemoteSettings) Address() string {
	if r.User == "" {
		return r.Host
	}
	return r.User + "@" + r.Host
}

// ReportSettings configures report generation and progress display.
type ReportSettings struct {
	OutputDir      string
	Formats        []string
	UpdateInterval time.Duration
	ShowDetails    bool
	UseColors      bool
}

// SyncSettings configures the cross-environment sync phase.
type SyncSettings struct {
	Source      string
	Destination string
	Exclude     []string
}

// Settings is the loaded run configuration.
type Settings struct {
	Environments map[Environment]EnvironmentSettings
	Remote       *RemoteSettings
	Rules        []Rule
	Ignore       []string
	Preserve     []string
	Directories  []string
	BackupDir    string
	Sync         SyncSettings
	Report       ReportSettings
	Defaults     ExecutionOptions
}

const (
	DefaultRemoteRoot      = "/home/ubuntu/rag/Permission-aware-RAG-FSxN-CDK-master"
	DefaultSyncDestination = "/home/ubuntu"
	DefaultReportDir       = "development/logs/organization"
	DefaultBackupDir       = "development/backups/organization"
	// UnknownTarget receives files no rule matched.
	UnknownTarget = "archive/unknown"
)

// DefaultRules is the built-in rule set used when a configuration file
// declares none.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "security", FileType: FileTypeSecurity, Patterns: []string{"*.pem", "*.key", "*secret*"}, Target: "development/configs/security", Permissions: "0600", Priority: 100, RequiresReview: true},
		{Name: "deployment-scripts", FileType: FileTypeScript, Patterns: []string{"deploy*.sh", "*-deploy.sh"}, Target: "development/scripts/deployment", Permissions: "0755", Priority: 90},
		{Name: "troubleshooting-docs", FileType: FileTypeDocument, Patterns: []string{"*troubleshoot*.md", "*TROUBLESHOOT*.md"}, Target: "docs/troubleshooting", Permissions: "0644", Priority: 85},
		{Name: "report-docs", FileType: FileTypeDocument, Patterns: []string{"*report*.md", "*REPORT*.md"}, Target: "development/docs/reports", Permissions: "0644", Priority: 80},
		{Name: "test-payloads", FileType: FileTypeTest, Patterns: []string{"*payload*.json", "test-*.json"}, Target: "tests/payloads", Permissions: "0644", Priority: 75},
		{Name: "environment-configs", FileType: FileTypeConfig, Patterns: []string{"*.env", "env.*"}, Target: "development/configs", Permissions: "0600", Priority: 70},
		{Name: "temp", FileType: FileTypeTemp, Patterns: []string{"*.tmp", "*.bak", "*.swp", "*.log"}, Target: "development/temp/working", Permissions: "0644", Priority: 65},
		{Name: "unit-tests", FileType: FileTypeTest, Patterns: []string{"*.test.ts", "*.test.js", "test_*.py", "*_test.go"}, Target: "tests/unit", Permissions: "0644", Priority: 60},
		{Name: "archives", FileType: FileTypeArchive, Patterns: []string{"*.zip", "*.tar", "*.tar.gz", "*.tgz"}, Target: "archive/legacy-files", Permissions: "0644", Priority: 55},
		{Name: "utility-scripts", FileType: FileTypeScript, Patterns: []string{"*.sh", "*.bash"}, Target: "development/scripts/utilities", Permissions: "0755", Priority: 50},
		{Name: "guides", FileType: FileTypeDocument, Patterns: []string{"*.md", "*.txt"}, Target: "docs/guides", Permissions: "0644", Priority: 40},
		{Name: "configs", FileType: FileTypeConfig, Patterns: []string{"*.json", "*.yml", "*.yaml", "*.toml"}, Target: "config", Permissions: "0644", Priority: 30},
	}
}

// DefaultPreserve lists project files that stay at the root.
func DefaultPreserve() []string {
	return []string{"README.md", "LICENSE", "package.json", "package-lock.json", "tsconfig.json", "cdk.json", "go.mod", "go.sum", "Makefile", "Dockerfile"}
}

// TargetDirectories returns the distinct rule targets in rule order,
// followed by UnknownTarget.
func TargetDirectories(rules []Rule) []string {
	seen := make(map[string]struct{}, len(rules)+1)
	var dirs []string
	for _, rule := range rules {
		if _, ok := seen[rule.Target]; ok || rule.Target == "" {
			continue
		}
		seen[rule.Target] = struct{}{}
		dirs = append(dirs, rule.Target)
	}
	if _, ok := seen[UnknownTarget]; !ok {
		dirs = append(dirs, UnknownTarget)
	}
	return dirs
}

// DefaultSyncExcludes are skipped by the sync phase.
func DefaultSyncExcludes() []string {
	return []string{"node_modules", ".git", "cdk.out"}
}

// DefaultSettings returns settings usable without a configuration file.
func DefaultSettings() Settings {
	return Settings{
		Environments: map[Environment]EnvironmentSettings{
			EnvironmentLocal: {Root: "."},
			EnvironmentEC2:   {Root: DefaultRemoteRoot},
		},
		Rules:       DefaultRules(),
		Ignore:      []string{".*", "*.lock"},
		Preserve:    DefaultPreserve(),
		Directories: append(TargetDirectories(DefaultRules()), DefaultReportDir),
		BackupDir:   DefaultBackupDir,
		Sync: SyncSettings{
			Source:      ".",
			Destination: DefaultSyncDestination,
			Exclude:     DefaultSyncExcludes(),
		},
		Report: ReportSettings{
			OutputDir:      DefaultReportDir,
			Formats:        []string{"markdown", "json"},
			UpdateInterval: time.Second,
			ShowDetails:    true,
			UseColors:      true,
		},
		Defaults: DefaultExecutionOptions(),
	}
}

// RootFor returns the configured root of env, or "" if none.
func (s Settings) RootFor(env Environment) string {
	return s.Environments[env].Root
}
