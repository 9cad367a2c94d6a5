package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lttle-cloud/ignition/internal/config"
	"github.com/lttle-cloud/ignition/internal/ipc"
)

// commandContext resolves configuration and the daemon socket once per
// invocation and hands subcommands an IPC client.
type commandContext struct {
	socketFlag *string
	configFlag *string

	loadOnce sync.Once
	config   *config.Config
	loadErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{socketFlag: socketFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.loadOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, _, _, c.loadErr = config.Load(path)
	})
	return c.config, c.loadErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// socketPath prefers the --socket flag, then the socket derived from
// the loaded configuration, so --config files that relocate
// daemon.data_dir are dialed correctly.
func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if flagValue := strings.TrimSpace(*c.socketFlag); flagValue != "" {
			return flagValue
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.SocketPath()
	}
	return filepath.Join(os.TempDir(), "flashd.sock")
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		return client, nil
	}

	hint := ""
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		hint = "; is flashd running?"
	case errors.Is(err, syscall.ECONNREFUSED):
		hint = "; the socket exists but flashd is not listening"
	}
	return nil, fmt.Errorf("connect to flashd at %s: %w%s", socket, err, hint)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
