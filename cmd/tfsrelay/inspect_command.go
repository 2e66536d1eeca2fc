package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tfsrelay/internal/message"
	"tfsrelay/internal/notifications"
	"tfsrelay/internal/relay"
	"tfsrelay/internal/routing"
	"tfsrelay/internal/rules"
	"tfsrelay/internal/services/tfs"
	"tfsrelay/internal/workitem"
)

// noParents stands in for the TFS client when inspect runs offline.
type noParents struct{}

func (noParents) FetchParent(context.Context, string) (*workitem.Summary, error) {
	return nil, nil
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var lookup bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a saved WorkItemChangedEvent would be relayed",
		Long:  "Parse a WorkItemChangedEvent document (use - for stdin), apply the notification rules, and print the message that would be posted. Nothing is sent to Slack.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			raw, err := readEventFile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			event, err := workitem.ParseEvent(raw)
			if err != nil {
				return err
			}

			var parents relay.ParentFinder = noParents{}
			if lookup {
				parents = tfs.NewClient(tfsConfig(cfg))
			}
			pipeline := relay.New(
				parents,
				message.NewComposer(cfg.TFS.CollectionURL),
				routing.NewTable(cfg.Routing()),
				notifications.NewService(nil),
				nil,
			)
			dispatch, err := pipeline.Prepare(cmd.Context(), raw)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(inspectRows(event, dispatch, lookup)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&lookup, "lookup", false, "Query TFS for the parent work item")
	return cmd
}

func readEventFile(stdin io.Reader, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return raw, nil
}

func inspectRows(event workitem.ChangeEvent, dispatch *relay.Dispatch, lookup bool) [][]string {
	rows := [][]string{
		{"Work item", event.WorkItemID},
		{"Type", event.WorkItemType},
		{"Area path", event.AreaPath},
		{"Title", event.Title},
		{"Changed by", event.ChangedBy},
		{"State", fmt.Sprintf("%q -> %q", event.OldState, event.NewState)},
	}
	if dispatch == nil {
		return append(rows, []string{"Intent", rules.IntentNone.String()}, []string{"Message", "(ignored)"})
	}

	parent := "(not looked up)"
	switch {
	case !dispatch.Intent.NeedsParent():
		parent = "n/a"
	case dispatch.Parent != nil:
		parent = fmt.Sprintf("%s %s: %s", dispatch.Parent.WorkItemType, dispatch.Parent.ID, dispatch.Parent.Title)
	case lookup:
		parent = "(none)"
	}
	channel := dispatch.Channel
	if channel == "" {
		channel = "(webhook default)"
	}

	return append(rows,
		[]string{"Intent", dispatch.Intent.String()},
		[]string{"Parent", parent},
		[]string{"Channel key", dispatch.Message.ChannelKey},
		[]string{"Channel", channel},
		[]string{"Message", dispatch.Message.Text},
	)
}
