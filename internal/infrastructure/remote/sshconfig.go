package remote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// ResolveAlias fills the gaps in settings from an OpenSSH client config,
// treating settings.Host as a Host alias. Values already set win.
func ResolveAlias(r io.Reader, settings organize.RemoteSettings) (organize.RemoteSettings, error) {
	if settings.Host == "" {
		return settings, nil
	}
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return settings, fmt.Errorf("parse ssh config: %w", err)
	}

	alias := settings.Host
	get := func(key string) (string, error) {
		value, err := cfg.Get(alias, key)
		if err != nil {
			return "", fmt.Errorf("ssh config %s for %s: %w", key, alias, err)
		}
		return strings.TrimSpace(value), nil
	}

	hostName, err := get("HostName")
	if err != nil {
		return settings, err
	}
	if hostName != "" {
		settings.Host = hostName
	}

	if settings.User == "" {
		if settings.User, err = get("User"); err != nil {
			return settings, err
		}
	}

	if settings.Port == 0 {
		raw, err := get("Port")
		if err != nil {
			return settings, err
		}
		if raw != "" {
			port, err := strconv.Atoi(raw)
			if err != nil {
				return settings, fmt.Errorf("ssh config Port for %s: %w", alias, err)
			}
			settings.Port = port
		}
	}

	if settings.KeyPath == "" {
		identity, err := get("IdentityFile")
		if err != nil {
			return settings, err
		}
		settings.KeyPath = expandHome(identity)
	}
	return settings, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
