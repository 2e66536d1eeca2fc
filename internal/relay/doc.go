// Package relay runs the per-event pipeline: parse the TFS change
// notification, decide whether it is notifiable, look up the parent work item
// when the intent needs it, compose the Slack text, resolve the channel, and
// post once.
//
// A Relay holds only collaborators fixed at construction, so concurrent Handle
// calls share no mutable state. Errors from parsing, lookup, and delivery are
// returned unchanged in kind; the caller logs them at the boundary. The relay
// never retries.
package relay
