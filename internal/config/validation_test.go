package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	reshelferrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

func baseConfig() *Config {
	return &Config{
		Version: "1.0",
		Environments: map[string]EnvironmentConfig{
			"local": {Root: "."},
		},
		Rules: []RuleConfig{{
			Name:        "scripts",
			Patterns:    []string{"*.sh"},
			Target:      "scripts",
			Permissions: "0755",
		}},
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		mutate    func(cfg *Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:      "duplicate rule names",
			mutate:    func(cfg *Config) { cfg.Rules = append(cfg.Rules, cfg.Rules[0]) },
			wantField: "rules[1].name",
		},
		{
			name:      "bad octal mode",
			mutate:    func(cfg *Config) { cfg.Rules[0].Permissions = "0999" },
			wantField: "rules[0].permissions",
		},
		{
			name:      "absolute target",
			mutate:    func(cfg *Config) { cfg.Rules[0].Target = "/etc" },
			wantField: "rules[0].target",
		},
		{
			name:      "target escaping root",
			mutate:    func(cfg *Config) { cfg.Rules[0].Target = "docs/../../x" },
			wantField: "rules[0].target",
		},
		{
			name:      "malformed glob",
			mutate:    func(cfg *Config) { cfg.Rules[0].Patterns = []string{"[a-"} },
			wantField: "rules[0].patterns[0]",
		},
		{
			name:      "unknown report format",
			mutate:    func(cfg *Config) { cfg.Report.Formats = []string{"pdf"} },
			wantField: "report.formats[0]",
		},
		{
			name:      "ec2 without remote settings",
			mutate:    func(cfg *Config) { cfg.Environments["ec2"] = EnvironmentConfig{Root: "/srv"} },
			wantField: "remote",
		},
		{
			name: "remote port out of range",
			mutate: func(cfg *Config) {
				cfg.Remote = &RemoteConfig{Host: "example.com", Port: 70000}
			},
			wantField: "remote.port",
		},
		{
			name:      "default environment not configured",
			mutate:    func(cfg *Config) { cfg.Defaults.Environments = []string{"ec2"} },
			wantField: "defaults.environments[0]",
		},
		{
			name:      "unknown default mode",
			mutate:    func(cfg *Config) { cfg.Defaults.Mode = "everything" },
			wantField: "defaults.mode",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			tc.mutate(cfg)
			err := ValidateConfig(cfg)
			if tc.wantField == "" {
				require.NoError(t, err)
				return
			}

			var validationErr *reshelferrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tc.wantField, validationErr.Field)
		})
	}
}

func TestValidateConfigRejectsNil(t *testing.T) {
	t.Parallel()

	var validationErr *reshelferrors.ValidationError
	require.ErrorAs(t, ValidateConfig(nil), &validationErr)
}

func TestValidateConfigDescribesFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"octal": {
			mutate: func(c *Config) { c.Rules[0].Permissions = "rwx" },
			want:   `"rwx" is not an octal file mode`,
		},
		"oneof": {
			mutate: func(c *Config) { c.Defaults.Mode = "everything" },
			want:   "must be one of full, scan_only",
		},
		"required": {
			mutate: func(c *Config) { c.Rules[0].Target = "" },
			want:   "value is required",
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := baseConfig()
			tc.mutate(cfg)

			var validationErr *reshelferrors.ValidationError
			require.ErrorAs(t, ValidateConfig(cfg), &validationErr)
			require.Contains(t, validationErr.Message, tc.want)
		})
	}
}
