package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("BCKT_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("BCKT_HOME", "/custom/bckt")
		t.Setenv("BCKT_RC_FILE", "/custom/rc")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := map[string]string{
			"config_path": "/custom/config.toml",
			"rc_path":     "/custom/rc",
			"base_dir":    "/custom/bckt",
			"log_dir":     "/custom/bckt/log",
		}
		for k, v := range want {
			if defaults[k] != v {
				t.Errorf("%s = %q, want %q", k, defaults[k], v)
			}
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("BCKT_CONFIG_PATH", "")
		t.Setenv("BCKT_HOME", "")
		t.Setenv("BCKT_RC_FILE", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		wantBase := filepath.Join(homeDir, ".local", "share", "bckt")

		want := map[string]string{
			"config_path": filepath.Join(homeDir, ".config", "bckt.toml"),
			"rc_path":     filepath.Join(homeDir, ".bcktrc"),
			"base_dir":    wantBase,
			"log_dir":     filepath.Join(wantBase, "log"),
		}
		for k, v := range want {
			if defaults[k] != v {
				t.Errorf("%s = %q, want %q", k, defaults[k], v)
			}
		}
	})
}
