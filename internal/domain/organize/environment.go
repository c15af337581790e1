package organize

import "strings"

// Environment names a target location that files are reorganized within.
type Environment string

const (
	EnvironmentLocal Environment = "local"
	EnvironmentEC2   Environment = "ec2"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironments splits a comma separated list such as "local,ec2".
// Blank entries are dropped; order is preserved.
func ParseEnvironments(raw string) []Environment {
	parts := strings.Split(raw, ",")
	envs := make([]Environment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		envs = append(envs, Environment(part))
	}
	return envs
}
