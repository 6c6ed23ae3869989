package brand

import (
	"path/filepath"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	if b.Name == "" {
		t.Error("Brand name should not be empty")
	}
	if BinaryName != "l2bridge" {
		t.Errorf("BinaryName = %q, want l2bridge", BinaryName)
	}
	if Version == "" {
		t.Error("Global Version should be initialized (to dev default)")
	}
}

func TestGetDirectories(t *testing.T) {
	t.Setenv(ConfigEnvPrefix+"_PREFIX", "")
	t.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "")
	t.Setenv(ConfigEnvPrefix+"_STATE_DIR", "")

	if GetConfigDir() != DefaultConfigDir {
		t.Errorf("Expected default config dir %s, got %s", DefaultConfigDir, GetConfigDir())
	}
	if GetStateDir() != DefaultStateDir {
		t.Errorf("Expected default state dir %s, got %s", DefaultStateDir, GetStateDir())
	}

	t.Setenv(ConfigEnvPrefix+"_PREFIX", "/opt/l2")
	if got := GetStateDir(); got != "/opt/l2/state" {
		t.Errorf("prefix state dir = %s", got)
	}

	t.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "/tmp/cfg")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", ConfigFileName) {
		t.Errorf("DefaultConfigPath = %s", got)
	}
}
