package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lttle-cloud/ignition/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, device, and worker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status *ipc.StatusResponse
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, statusErr := client.Status()
				if statusErr != nil {
					return statusErr
				}
				status = resp
				return nil
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Daemon", colorize))
			fmt.Fprintln(stdout, renderStatusLine("Running", boolKind(status.Running), yesNo(status.Running), colorize))
			fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Control Device", colorize))
			deviceKind := statusOK
			deviceDetail := "Available"
			if !status.DeviceAvailable {
				deviceKind = statusWarn
				deviceDetail = "Not available"
			}
			fmt.Fprintln(stdout, renderStatusLine("Path", statusInfo, status.DevicePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("State", deviceKind, deviceDetail, colorize))
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Workers", colorize))
			if len(status.Workers) == 0 {
				fmt.Fprintln(stdout, statusIndent+"No workers registered")
			}
			for _, worker := range status.Workers {
				fmt.Fprintln(stdout, renderStatusLine(displayLabel(worker.Name), workerKind(worker.State), workerDetail(worker), colorize))
			}
			fmt.Fprintln(stdout)

			fmt.Fprintln(stdout, renderSectionHeader("Journal", colorize))
			rows := buildJournalRows(status.Journal)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, statusIndent+"No commands recorded")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Command", "Count"}, rows, 1))
			if status.Journal.Failed > 0 {
				fmt.Fprintf(stdout, "%d of %d sends failed\n", status.Journal.Failed, status.Journal.Total)
			}
			return nil
		},
	}
}

func boolKind(value bool) statusKind {
	if value {
		return statusOK
	}
	return statusWarn
}

func workerKind(state string) statusKind {
	switch state {
	case "done":
		return statusOK
	case "failed":
		return statusError
	case "skipped":
		return statusWarn
	default:
		return statusInfo
	}
}

func workerDetail(worker ipc.WorkerStatus) string {
	if worker.Detail == "" {
		return worker.State
	}
	return fmt.Sprintf("%s (%s)", worker.State, worker.Detail)
}

func buildJournalRows(stats ipc.JournalStats) [][]string {
	commands := make([]string, 0, len(stats.PerCommand))
	for command := range stats.PerCommand {
		commands = append(commands, command)
	}
	sort.Strings(commands)

	rows := make([][]string, 0, len(commands))
	for _, command := range commands {
		rows = append(rows, []string{displayLabel(command), fmt.Sprintf("%d", stats.PerCommand[command])})
	}
	return rows
}
