// Package notifications delivers composed work item messages to Slack.
//
// The default implementation posts JSON to the incoming webhook configured in
// config.toml and gracefully degrades to a no-op when no webhook is set. A
// token bucket limits outbound posts to slack.rate_per_sec so bursts of TFS
// events stay under Slack's webhook limits.
//
// Delivery errors are tagged with services.ErrDelivery. The package does not
// retry; callers decide what a failed post means.
package notifications
