package organize

import "testing"

func TestTargetDirectoriesDeduplicatesAndAppendsUnknown(t *testing.T) {
	rules := []Rule{
		{Name: "a", Target: "scripts"},
		{Name: "b", Target: "docs"},
		{Name: "c", Target: "scripts"},
		{Name: "d"},
	}

	got := TargetDirectories(rules)
	want := []string{"scripts", "docs", UnknownTarget}
	if len(got) != len(want) {
		t.Fatalf("TargetDirectories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TargetDirectories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultSettingsAreSelfConsistent(t *testing.T) {
	settings := DefaultSettings()

	if err := settings.Defaults.Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}
	for _, env := range settings.Defaults.Environments {
		if settings.RootFor(env) == "" {
			t.Errorf("no root configured for default environment %q", env)
		}
	}

	dirs := map[string]bool{}
	for _, dir := range settings.Directories {
		dirs[dir] = true
	}
	for _, rule := range settings.Rules {
		if !dirs[rule.Target] {
			t.Errorf("rule %q targets %q which is not in the directory layout", rule.Name, rule.Target)
		}
	}
}

func TestRemoteAddress(t *testing.T) {
	if got := (RemoteSettings{Host: "10.0.0.5"}).Address(); got != "10.0.0.5" {
		t.Errorf("Address() = %q", got)
	}
	if got := (RemoteSettings{Host: "10.0.0.5", User: "ubuntu"}).Address(); got != "ubuntu@10.0.0.5" {
		t.Errorf("Address() = %q", got)
	}
}
