package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tfsrelay/internal/daemon"
)

const statusTimeout = 5 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running tfsrelay listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(address) == "" {
				address = dialAddress(cfg.Paths.APIBind)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+address+daemon.HealthPath, nil)
			if err != nil {
				return fmt.Errorf("build status request: %w", err)
			}
			client := &http.Client{Timeout: statusTimeout}
			resp, err := client.Do(req)
			if err != nil {
				var opErr *net.OpError
				if errors.As(err, &opErr) {
					return fmt.Errorf("tfsrelay is not reachable at %s; start it with `tfsrelay serve`", address)
				}
				return fmt.Errorf("query status: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("query status: http %d", resp.StatusCode)
			}

			var status daemon.Status
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			started := "-"
			if !status.StartedAt.IsZero() {
				started = status.StartedAt.Local().Format(time.DateTime)
			}
			rows := [][]string{
				{"Running", yesNo(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Address", status.Address},
				{"Started", started},
				{"Events received", strconv.FormatInt(status.EventsReceived, 10)},
				{"Events failed", strconv.FormatInt(status.EventsFailed, 10)},
				{"Lock file", status.LockFilePath},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listener host:port (defaults to paths.api_bind)")
	return cmd
}

// dialAddress turns a listen address into one a local client can connect to.
func dialAddress(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
