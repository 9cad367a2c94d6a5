package config

const (
	userConfigPath   = "~/.config/lttle/flashd.toml"
	systemConfigPath = "/etc/lttle/flashd.toml"

	defaultDevicePath             = "/proc/lttle"
	defaultDataDir                = "~/.local/share/lttle/flashd"
	defaultJournalRetention       = 5000
	defaultRecoveryPollSeconds    = 2
	defaultRecoveryTimeoutSeconds = 300
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Device: Device{
			Path:          defaultDevicePath,
			WaitForDevice: true,
		},
		Database: Database{
			RecoveryPollSeconds:    defaultRecoveryPollSeconds,
			RecoveryTimeoutSeconds: defaultRecoveryTimeoutSeconds,
		},
		Worker: Worker{
			FlashReady: true,
		},
		Daemon: Daemon{
			DataDir:          defaultDataDir,
			JournalRetention: defaultJournalRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
