// Package main hosts the tfsrelay CLI entrypoint and command graph.
//
// serve runs the inbound listener and the relay pipeline; status queries a
// running listener over its health endpoint. inspect dry-runs a saved event
// document, test-notify and check verify the Slack and TFS wiring, and config
// scaffolds or prints the configuration file.
package main
