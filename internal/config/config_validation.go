package config

import (
	"fmt"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	reshelferrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// ValidateConfig performs structural and cross-field validation on an entire configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return reshelferrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	names := make(map[string]int, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if first, exists := names[rule.Name]; exists {
			return reshelferrors.NewValidationError(fieldForRule(i, "name"), fmt.Sprintf("duplicate rule name %q (first defined at rules[%d])", rule.Name, first), nil)
		}
		names[rule.Name] = i
	}

	if _, ok := cfg.Environments[string(organize.EnvironmentEC2)]; ok && cfg.Remote == nil {
		return reshelferrors.NewValidationError("remote", "remote settings are required when the ec2 environment is configured", nil)
	}

	for i, env := range cfg.Defaults.Environments {
		if _, ok := cfg.Environments[env]; !ok {
			return reshelferrors.NewValidationError(fmt.Sprintf("defaults.environments[%d]", i), fmt.Sprintf("environment %q is not configured", env), nil)
		}
	}

	return nil
}
