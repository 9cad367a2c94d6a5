package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lttle-cloud/ignition/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flashd.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Device.Path != "/proc/lttle" {
		t.Fatalf("device path = %q, want /proc/lttle", cfg.Device.Path)
	}
	if !cfg.Device.WaitForDevice {
		t.Fatal("wait_for_device should default to true")
	}
	if !cfg.Worker.FlashReady {
		t.Fatal("flash_ready worker should default to enabled")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Database.RecoveryPollSeconds != 2 || cfg.Database.RecoveryTimeoutSeconds != 300 {
		t.Fatalf("unexpected recovery gate defaults: %+v", cfg.Database)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/lttle0"
wait_for_device = false

[database]
driver = "Postgres"
dsn = " host=/var/run/postgresql dbname=postgres "
recovery_poll_seconds = 1
recovery_timeout_seconds = 30

[daemon]
data_dir = "~/flashd-state"

[logging]
format = "JSON"
level = "DEBUG"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Device.Path != "/dev/lttle0" || cfg.Device.WaitForDevice {
		t.Fatalf("unexpected device config: %+v", cfg.Device)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver not lowercased: %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "host=/var/run/postgresql dbname=postgres" {
		t.Fatalf("dsn not trimmed: %q", cfg.Database.DSN)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}
	if cfg.Daemon.DataDir != filepath.Join(home, "flashd-state") {
		t.Fatalf("data_dir not expanded: %q", cfg.Daemon.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "unknown driver",
			contents: "[database]\ndriver = \"mysql\"\ndsn = \"x\"\n",
			wantErr:  "database.driver",
		},
		{
			name:     "driver without dsn",
			contents: "[database]\ndriver = \"postgres\"\n",
			wantErr:  "database.dsn",
		},
		{
			name:     "negative poll",
			contents: "[database]\nrecovery_poll_seconds = -1\n",
			wantErr:  "recovery_poll_seconds",
		},
		{
			name:     "timeout below poll",
			contents: "[database]\nrecovery_poll_seconds = 60\nrecovery_timeout_seconds = 5\n",
			wantErr:  "recovery_timeout_seconds",
		},
		{
			name:     "bad log format",
			contents: "[logging]\nformat = \"xml\"\n",
			wantErr:  "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.contents)
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.DataDir = "/var/lib/lttle/flashd"
	if got := cfg.LockPath(); got != "/var/lib/lttle/flashd/flashd.lock" {
		t.Fatalf("LockPath = %q", got)
	}
	if got := cfg.SocketPath(); got != "/var/lib/lttle/flashd/flashd.sock" {
		t.Fatalf("SocketPath = %q", got)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flashd.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if cfg.Device.Path != "/proc/lttle" {
		t.Fatalf("sample device path = %q", cfg.Device.Path)
	}
}
