package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tfsrelay/internal/config"
	"tfsrelay/internal/services/tfs"
)

// CheckTFS verifies that the collection is reachable and accepts the service
// credential. It uses a single attempt bounded by the configured timeout.
func CheckTFS(ctx context.Context, cfg config.TFS) Result {
	const name = "TFS collection"

	if strings.TrimSpace(cfg.CollectionURL) == "" {
		return Result{Name: name, Detail: "missing collection_url"}
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return Result{Name: name, Detail: "missing username"}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := tfs.NewClient(tfs.Config{
		CollectionURL:  cfg.CollectionURL,
		Username:       cfg.Username,
		Password:       cfg.Password,
		TimeoutSeconds: cfg.RequestTimeout,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckSlack verifies the webhook is configured. Nothing is posted; use the
// test-notify command for an end-to-end check.
func CheckSlack(cfg config.Slack) Result {
	const name = "Slack webhook"

	webhook := strings.TrimSpace(cfg.WebhookURL)
	if webhook == "" {
		return Result{Name: name, Detail: "not configured (notifications are discarded)"}
	}
	parsed, err := url.Parse(webhook)
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: "invalid webhook_url"}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host}
}

// CheckRouting reports whether events have somewhere to go.
func CheckRouting(cfg *config.Config) Result {
	const name = "Channel routing"

	routes := len(cfg.Channels)
	fallback := strings.TrimSpace(cfg.Slack.DefaultChannel)
	switch {
	case routes == 0 && fallback == "":
		return Result{Name: name, Passed: true, Detail: "no routes; posting to the webhook's channel"}
	case fallback == "":
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d route(s), unrouted areas use the webhook's channel", routes)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d route(s), default %s", routes, fallback)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for health check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (server unreachable)"
	}
	return err.Error()
}
