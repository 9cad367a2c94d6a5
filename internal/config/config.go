package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Device configures the flash controller control device.
type Device struct {
	// Path is the control device node, usually /proc/lttle.
	Path string `toml:"path"`
	// WaitForDevice keeps the daemon watching for the device to appear
	// when it is absent at startup.
	WaitForDevice bool `toml:"wait_for_device"`
}

// Database configures the recovery gate for the flash-ready worker.
// An empty driver means no database to wait on: the gate opens
// immediately.
type Database struct {
	Driver                 string `toml:"driver"`
	DSN                    string `toml:"dsn"`
	RecoveryPollSeconds    int    `toml:"recovery_poll_seconds"`
	RecoveryTimeoutSeconds int    `toml:"recovery_timeout_seconds"`
}

// Worker toggles the daemon's background workers.
type Worker struct {
	// FlashReady enables the one-shot worker that sends manual_trigger
	// once recovery has finished.
	FlashReady bool `toml:"flash_ready"`
}

// Daemon configures daemon-local state.
type Daemon struct {
	// DataDir holds the journal database, lock file, and IPC socket.
	DataDir string `toml:"data_dir"`
	// JournalRetention is the number of journal rows kept by pruning.
	JournalRetention int `toml:"journal_retention"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for flashd.
type Config struct {
	Device   Device   `toml:"device"`
	Database Database `toml:"database"`
	Worker   Worker   `toml:"worker"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default
// per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigPath)
}

// Load locates, parses, and validates a configuration file. The
// returned config has all path fields expanded and normalized. The
// second return is the resolved path, the third reports whether the
// file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	userPath, err := expandPath(userConfigPath)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}
	if info, err := os.Stat(systemConfigPath); err == nil && !info.IsDir() {
		return systemConfigPath, true, nil
	}

	return userPath, false, nil
}

// EnsureDirectories creates the daemon data directory.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Daemon.DataDir) == "" {
		return errors.New("daemon.data_dir is empty")
	}
	if err := os.MkdirAll(c.Daemon.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Daemon.DataDir, err)
	}
	return nil
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Daemon.DataDir, "flashd.lock")
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Daemon.DataDir, "flashd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
