// Package config loads, normalizes, and validates tfsrelay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TFS_USERNAME, TFS_PASSWORD, and SLACK_WEBHOOK_URL. Channel routing keys are
// stored with the channel_ prefix so lookups can use "channel_" + area path
// regardless of how the file spells them.
//
// Always obtain settings through this package so downstream code receives
// trimmed URLs, merged type aliases, and clear validation errors.
package config
