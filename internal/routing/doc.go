// Package routing maps TFS area paths to Slack channels.
//
// Table holds an immutable snapshot of the [channels] configuration and swaps
// it atomically when Watch observes an edit to the config file, so in-flight
// events always resolve against one consistent snapshot.
package routing
