package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Device.Path = strings.TrimSpace(c.Device.Path)
	if c.Device.Path == "" {
		c.Device.Path = defaultDevicePath
	}
	if c.Daemon.DataDir, err = expandPath(strings.TrimSpace(c.Daemon.DataDir)); err != nil {
		return fmt.Errorf("daemon.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.RecoveryPollSeconds == 0 {
		c.Database.RecoveryPollSeconds = defaultRecoveryPollSeconds
	}
	if c.Database.RecoveryTimeoutSeconds == 0 {
		c.Database.RecoveryTimeoutSeconds = defaultRecoveryTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Daemon.JournalRetention == 0 {
		c.Daemon.JournalRetention = defaultJournalRetention
	}
}
