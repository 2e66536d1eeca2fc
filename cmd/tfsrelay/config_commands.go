package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tfsrelay/internal/config"
	"tfsrelay/internal/textutil"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set tfs.collection_url and slack.webhook_url, then point the TFS subscription at")
			fmt.Fprintf(out, "  http://<api_bind>/services/WorkItemChanged.asmx\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path, exists := ctx.configFile()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults and environment were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, exists := ctx.configFile()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues(configRows(cfg, path, exists)))
			if routes := channelRows(cfg.Channels); len(routes) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Channel key", "Channel"}, routes, nil))
			}
			return nil
		},
	}
}

func configRows(cfg *config.Config, path string, exists bool) [][]string {
	return [][]string{
		{"config file", path},
		{"config file exists", yesNo(exists)},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"paths.api_bind", cfg.Paths.APIBind},
		{"paths.api_token", textutil.Redact(cfg.Paths.APIToken)},
		{"tfs.collection_url", cfg.TFS.CollectionURL},
		{"tfs.username", cfg.TFS.Username},
		{"tfs.password", textutil.Redact(cfg.TFS.Password)},
		{"tfs.request_timeout", strconv.Itoa(cfg.TFS.RequestTimeout) + "s"},
		{"tfs.type_aliases", aliasSummary(cfg.TFS.TypeAliases)},
		{"slack.webhook_url", textutil.Redact(cfg.Slack.WebhookURL)},
		{"slack.username", cfg.Slack.Username},
		{"slack.icon_emoji", cfg.Slack.IconEmoji},
		{"slack.default_channel", cfg.Slack.DefaultChannel},
		{"slack.request_timeout", strconv.Itoa(cfg.Slack.RequestTimeout) + "s"},
		{"slack.rate_per_sec", strconv.Itoa(cfg.Slack.RatePerSec)},
		{"logging.format", cfg.Logging.Format},
		{"logging.level", cfg.Logging.Level},
	}
}

func channelRows(channels map[string]string) [][]string {
	keys := make([]string, 0, len(channels))
	for key := range channels {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, channels[key]})
	}
	return rows
}

func aliasSummary(aliases map[string]string) string {
	pairs := make([]string, 0, len(aliases))
	for from, to := range aliases {
		pairs = append(pairs, from+" => "+to)
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ", ")
}
