package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tfsrelay/internal/daemon"
	"tfsrelay/internal/logging"
	"tfsrelay/internal/message"
	"tfsrelay/internal/notifications"
	"tfsrelay/internal/preflight"
	"tfsrelay/internal/relay"
	"tfsrelay/internal/routing"
	"tfsrelay/internal/services/tfs"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for TFS work item notifications and relay them to Slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if !result.Passed {
			logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
			)
		}
	}

	table := routing.NewTable(cfg.Routing())
	if path, exists := ctx.configFile(); exists {
		watcher := routing.NewWatcher(table, path, logger)
		go func() {
			if err := watcher.Watch(signalCtx); err != nil {
				logger.Warn("routing watcher exited", logging.Error(err))
			}
		}()
	}

	notifier := notifications.NewService(cfg)
	if notifications.IsNoop(notifier) {
		logger.Warn("slack.webhook_url not set; notifications will be discarded")
	}

	pipeline := relay.New(
		tfs.NewClient(tfsConfig(cfg)),
		message.NewComposer(cfg.TFS.CollectionURL),
		table,
		notifier,
		logger,
	)

	d, err := daemon.New(cfg, pipeline, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("tfsrelay shutting down")
	return nil
}
