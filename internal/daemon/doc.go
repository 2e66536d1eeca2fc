// Package daemon runs the long-lived tfsrelay listener.
//
// It accepts TFS SOAP Notify calls and raw event posts, stamps each request
// with a correlation ID, hands the event XML to the relay pipeline, and maps
// pipeline errors to SOAP faults or HTTP status codes. Pipeline failures are
// logged here exactly once. A flock-based lock file in the log directory keeps
// a second instance from starting against the same configuration.
//
// Keep event logic out of this package: parsing, rules, lookups, and delivery
// live in their own packages while the daemon focuses on startup, shutdown,
// and request plumbing.
package daemon
