package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"github.com/lttle-cloud/ignition/flash"
	"github.com/lttle-cloud/ignition/internal/logging"
	"github.com/lttle-cloud/ignition/internal/ready"
)

const doctorGateTimeout = 5 * time.Second

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the device, daemon, and database environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Environment Checks", colorize))

			fmt.Fprintln(stdout, deviceCheckLine(cfg.Device.Path, colorize))
			fmt.Fprintln(stdout, daemonCheckLine(ctx, colorize))
			fmt.Fprintln(stdout, databaseCheckLine(cmd.Context(), ctx, colorize))
			return nil
		},
	}
}

func deviceCheckLine(path string, colorize bool) string {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return renderStatusLine("Control device", statusWarn, fmt.Sprintf("%s does not exist", path), colorize)
		}
		return renderStatusLine("Control device", statusError, err.Error(), colorize)
	}

	device, err := flash.Open(path)
	if err != nil {
		return renderStatusLine("Control device", statusError, fmt.Sprintf("present but not writable: %v", err), colorize)
	}
	device.Close()
	return renderStatusLine("Control device", statusOK, fmt.Sprintf("%s is writable", path), colorize)
}

func daemonCheckLine(ctx *commandContext, colorize bool) string {
	client, err := ctx.dialClient()
	if err != nil {
		return renderStatusLine("Daemon", statusWarn, err.Error(), colorize)
	}
	defer client.Close()

	ping, err := client.Ping()
	if err != nil {
		return renderStatusLine("Daemon", statusError, fmt.Sprintf("ping failed: %v", err), colorize)
	}
	return renderStatusLine("Daemon", statusOK, fmt.Sprintf("reachable (pid %d)", ping.PID), colorize)
}

func databaseCheckLine(cmdCtx context.Context, ctx *commandContext, colorize bool) string {
	cfg := ctx.configValue()
	if cfg.Database.Driver == "" {
		return renderStatusLine("Database", statusInfo, "not configured", colorize)
	}

	gate := &ready.DatabaseGate{
		DriverName:   cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		PollInterval: time.Second,
		Timeout:      doctorGateTimeout,
		Logger:       logging.NewNop(),
	}
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	if err := gate.WaitReady(cmdCtx); err != nil {
		return renderStatusLine("Database", statusWarn, fmt.Sprintf("not ready: %v", err), colorize)
	}
	return renderStatusLine("Database", statusOK, "reachable and out of recovery", colorize)
}
