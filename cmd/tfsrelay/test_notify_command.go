package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tfsrelay/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to Slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg)
			if notifications.IsNoop(svc) {
				return errors.New("slack.webhook_url is not configured (set it in the config file or SLACK_WEBHOOK_URL)")
			}
			if channel == "" {
				channel = cfg.Slack.DefaultChannel
			}
			if err := svc.TestNotification(cmd.Context(), channel); err != nil {
				return err
			}
			if channel == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", channel)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel override (defaults to slack.default_channel)")
	return cmd
}
