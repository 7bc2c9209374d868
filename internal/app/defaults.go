package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - BCKT_CONFIG_PATH: config file location (default: ~/.config/bckt.toml)
//   - BCKT_HOME: base directory for bckt data (default: ~/.local/share/bckt)
//   - BCKT_RC_FILE: KEY=VALUE overrides loaded before the environment (default: ~/.bcktrc)
func GetDefaults() (map[string]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	baseDir := envOr("BCKT_HOME", filepath.Join(homeDir, ".local", "share", "bckt"))

	return map[string]string{
		"config_path": envOr("BCKT_CONFIG_PATH", filepath.Join(homeDir, ".config", "bckt.toml")),
		"rc_path":     envOr("BCKT_RC_FILE", filepath.Join(homeDir, ".bcktrc")),
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
