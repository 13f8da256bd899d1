package appconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if !reflect.DeepEqual(cfg, def) {
		t.Errorf("got %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
distro = "Debian"
access_mode = "drive-letter-legacy"
host_path_attempts = 3
host_path_delay = "250ms"
reconcile_timeout = "10s"
reconcile_on_start = false
extra_mount_args = "--options 'noatime,ro'"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Distro != "Debian" || cfg.AccessMode != "drive-letter-legacy" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.HostPathAttempts != 3 || cfg.HostPathDelay.Std() != 250*time.Millisecond {
		t.Errorf("host path poll settings not applied: %+v", cfg)
	}
	if cfg.ReconcileTimeout.Std() != 10*time.Second || cfg.ReconcileOnStart {
		t.Errorf("reconcile settings not applied: %+v", cfg)
	}
	// Unset values keep their defaults.
	if cfg.ElevationTimeout.Std() != time.Minute {
		t.Errorf("elevation timeout default lost: %v", cfg.ElevationTimeout.Std())
	}

	args, err := cfg.MountArgs()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"--options", "noatime,ro"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("mount args = %v, want %v", args, want)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `host_path_delay = "eventually"`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unparsable duration")
	}
}

func TestMountArgsEmpty(t *testing.T) {
	args, err := Default().MountArgs()
	if err != nil {
		t.Fatal(err)
	}
	if args != nil {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestStatePathsDefaultToAppDir(t *testing.T) {
	cfg := Default()
	if filepath.Base(cfg.StateFile()) != "mounts.json" {
		t.Errorf("unexpected state path %s", cfg.StateFile())
	}
	if filepath.Base(cfg.HistoryFile()) != "history.db" {
		t.Errorf("unexpected history path %s", cfg.HistoryFile())
	}
	cfg.StatePath = `C:\elsewhere\state.json`
	if cfg.StateFile() != cfg.StatePath {
		t.Errorf("override ignored: %s", cfg.StateFile())
	}
}
