package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lttle-cloud/ignition/internal/ipc"
)

const defaultEventLimit = 20

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent device commands from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = defaultEventLimit
			}
			var resp *ipc.EventsResponse
			err := ctx.withClient(func(client *ipc.Client) error {
				events, eventsErr := client.Events(limit)
				if eventsErr != nil {
					return eventsErr
				}
				resp = events
				return nil
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(resp.Events) == 0 {
				fmt.Fprintln(stdout, "No events recorded")
				return nil
			}

			rows := make([][]string, 0, len(resp.Events))
			for _, event := range resp.Events {
				detail := event.Detail
				if detail == "" {
					detail = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", event.ID),
					event.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					event.Command,
					event.Outcome,
					event.Source,
					detail,
				})
			}
			headers := []string{"ID", "Time", "Command", "Outcome", "Source", "Detail"}
			fmt.Fprintln(stdout, renderTable(headers, rows, 0))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultEventLimit, "Maximum number of events to show")
	return cmd
}
