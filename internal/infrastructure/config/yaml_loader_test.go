package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
)

const sampleConfig = `version: "1.0"
environments:
  local:
    root: "."
rules:
  - name: scripts
    type: script
    patterns: ["*.sh"]
    target: scripts
    permissions: "0755"
defaults:
  environments: [local]
  sync: false
`

func TestYAMLLoaderLoadSuccess(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	configPath := writeConfig(t, "reshelf.yaml", sampleConfig)

	settings, err := loader.Load(ctx, configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if settings == nil {
		t.Fatal("expected settings, got nil")
	}
	if len(settings.Rules) != 1 || settings.Rules[0].Permissions != "0755" {
		t.Fatalf("expected the scripts rule to be preserved, got %+v", settings.Rules)
	}
	if settings.Defaults.EnableSync {
		t.Fatalf("expected sync to be disabled by defaults")
	}
	if got := settings.Defaults.Environments; len(got) != 1 || got[0] != organize.EnvironmentLocal {
		t.Fatalf("unexpected default environments %v", got)
	}
}

func TestYAMLLoaderEmptyPathUsesDefaults(t *testing.T) {
	settings, err := newTestLoader().Load(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(settings.Rules) != len(organize.DefaultRules()) {
		t.Fatalf("expected built-in rules, got %d", len(settings.Rules))
	}
}

func TestYAMLLoaderLoadMissingFile(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	_, err := loader.Load(ctx, "does-not-exist.yaml")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	assertDomainError(t, err, organize.ErrCodeNotFound)
}

func TestYAMLLoaderLoadParseError(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	configPath := writeConfig(t, "bad.yaml", "version: [")

	_, err := loader.Load(ctx, configPath)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	assertDomainError(t, err, organize.ErrCodeValidation)
}

func TestYAMLLoaderLoadValidationErrorKeepsField(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	configPath := writeConfig(t, "invalid.yaml", `version: "1.0"
environments:
  local:
    root: "."
rules:
  - name: scripts
    patterns: ["*.sh"]
    target: scripts
  - name: scripts
    patterns: ["*.bash"]
    target: scripts
`)

	_, err := loader.Load(ctx, configPath)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	domainErr := assertDomainError(t, err, organize.ErrCodeValidation)
	if domainErr.Context["field"] != "rules[1].name" {
		t.Fatalf("expected field context, got %v", domainErr.Context)
	}
}

func TestYAMLLoaderLoadCancelled(t *testing.T) {
	loader := newTestLoader()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, "whatever.yaml")
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	assertDomainError(t, err, organize.ErrCodeCancelled)
}

func TestYAMLLoaderValidate(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	configPath := writeConfig(t, "reshelf.yaml", sampleConfig)
	if err := loader.Validate(ctx, configPath); err != nil {
		t.Fatalf("expected validate success, got %v", err)
	}

	otherPath := writeConfig(t, "reshelf.toml", sampleConfig)
	assertDomainError(t, loader.Validate(ctx, otherPath), organize.ErrCodeValidation)

	assertDomainError(t, loader.Validate(ctx, t.TempDir()), organize.ErrCodeValidation)
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func assertDomainError(t *testing.T, err error, code organize.ErrorCode) *organize.DomainError {
	t.Helper()
	var domainErr *organize.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, domainErr.Code)
	}
	return domainErr
}

func newTestLoader() *YAMLLoader {
	return NewYAMLLoader(logging.NewNoOpLogger())
}

func TestYAMLLoaderReadsThroughFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/etc/reshelf.yaml", []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loader := NewYAMLLoader(logging.NewNoOpLogger(), WithFs(fs))

	settings, err := loader.Load(context.Background(), "/etc/reshelf.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settings.Rules) != 1 || settings.Rules[0].Name != "scripts" {
		t.Fatalf("unexpected rules %+v", settings.Rules)
	}

	assertDomainError(t, loader.Validate(context.Background(), "/etc/missing.yaml"), organize.ErrCodeNotFound)
}
