package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDevice() error {
	if c.Device.Path == "" {
		return errors.New("device.path must be set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver: unsupported value %q (use postgres, sqlite, or leave empty)", c.Database.Driver)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.driver is %q", c.Database.Driver)
	}
	if c.Database.RecoveryPollSeconds < 1 {
		return errors.New("database.recovery_poll_seconds must be positive")
	}
	if c.Database.RecoveryTimeoutSeconds < c.Database.RecoveryPollSeconds {
		return errors.New("database.recovery_timeout_seconds must be at least recovery_poll_seconds")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.DataDir == "" {
		return errors.New("daemon.data_dir must be set")
	}
	if c.Daemon.JournalRetention < 1 {
		return errors.New("daemon.journal_retention must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	return nil
}
