// Package appconfig loads limount's per-user settings file. Every value
// has a default, the file is optional, and an unreadable file is an error
// rather than silently ignored settings.
package appconfig

import (
	"os"
	"path/filepath"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const appDirName = "limount"

// Duration is a time.Duration that reads and writes in the "30s" / "2m"
// spelling users expect in a settings file.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the settings file contents.
type Config struct {
	// Distro is the distribution host paths go through. Empty uses the
	// platform default.
	Distro string `toml:"distro"`
	// AccessMode is the default surface for new mounts: "network-location",
	// "drive-letter-legacy" or "none".
	AccessMode string `toml:"access_mode"`

	// StatePath and HistoryPath override where the mount record and the
	// operation log live. Empty places them next to the config file.
	StatePath   string `toml:"state_path"`
	HistoryPath string `toml:"history_path"`

	// HostPathAttempts and HostPathDelay bound the wait for a fresh
	// mount's \\wsl$ path to become visible.
	HostPathAttempts int      `toml:"host_path_attempts"`
	HostPathDelay    Duration `toml:"host_path_delay"`

	// ReconcileTimeout bounds each per-record probe during
	// reconciliation.
	ReconcileTimeout Duration `toml:"reconcile_timeout"`
	// ReconcileOnStart runs a reconciliation before the first command
	// that reads mount state.
	ReconcileOnStart bool `toml:"reconcile_on_start"`

	// ElevationTimeout bounds waiting for an elevated helper to report
	// back; ElevationPoll is how often its result is checked for.
	ElevationTimeout Duration `toml:"elevation_timeout"`
	ElevationPoll    Duration `toml:"elevation_poll"`

	// ExtraMountArgs are appended to every wsl.exe attach invocation,
	// split shell-style.
	ExtraMountArgs string `toml:"extra_mount_args"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AccessMode:       "network-location",
		HostPathAttempts: 10,
		HostPathDelay:    Duration(500 * time.Millisecond),
		ReconcileTimeout: Duration(5 * time.Second),
		ReconcileOnStart: true,
		ElevationTimeout: Duration(time.Minute),
		ElevationPoll:    Duration(200 * time.Millisecond),
	}
}

// Dir returns the per-user directory settings and state live in:
// %APPDATA%\limount on Windows, $XDG_CONFIG_HOME/limount elsewhere.
func Dir() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, appDirName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".config", appDirName)
}

// DefaultPath returns the settings file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the settings file at path, filling in defaults for everything
// it does not set. A missing file yields the defaults; a present but
// unreadable or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if cfg.HostPathAttempts < 1 {
		cfg.HostPathAttempts = 1
	}
	return cfg, nil
}

// StateFile returns the mount-state path: the configured one, or
// mounts.json in the app directory.
func (c *Config) StateFile() string {
	if c.StatePath != "" {
		return c.StatePath
	}
	return filepath.Join(Dir(), "mounts.json")
}

// HistoryFile returns the operation-log path: the configured one, or
// history.db in the app directory.
func (c *Config) HistoryFile() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(Dir(), "history.db")
}

// MountArgs splits ExtraMountArgs shell-style, so quoted arguments with
// spaces survive.
func (c *Config) MountArgs() ([]string, error) {
	if c.ExtraMountArgs == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(c.ExtraMountArgs)
	if err != nil {
		return nil, errors.Wrap(err, "parsing extra_mount_args")
	}
	return args, nil
}
