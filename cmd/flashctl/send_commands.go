package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lttle-cloud/ignition/internal/ipc"
)

func newSendCommands(ctx *commandContext) []*cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send manual_trigger to the control device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, ctx, func(client *ipc.Client) (*ipc.SendResponse, error) {
				return client.Trigger()
			})
		},
	}

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Send flash_lock to the control device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, ctx, func(client *ipc.Client) (*ipc.SendResponse, error) {
				return client.Lock()
			})
		},
	}

	unlockCmd := &cobra.Command{
		Use:   "unlock",
		Short: "Send flash_unlock to the control device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, ctx, func(client *ipc.Client) (*ipc.SendResponse, error) {
				return client.Unlock()
			})
		},
	}

	return []*cobra.Command{triggerCmd, lockCmd, unlockCmd}
}

func runSend(cmd *cobra.Command, ctx *commandContext, send func(*ipc.Client) (*ipc.SendResponse, error)) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := send(client)
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		if resp.Sent {
			fmt.Fprintln(stdout, resp.Message)
			return nil
		}
		return fmt.Errorf("send failed: %s", resp.Message)
	})
}
