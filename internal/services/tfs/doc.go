// Package tfs provides a client for the Team Foundation Server work item query
// endpoint.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.FetchSummary: look up one work item and return its normalized summary.
// Client.FetchParent: find the "is child of" relation and look the parent up.
// Client.HealthCheck: verify the collection URL and credential are accepted.
//
// Every request carries the configured service credential. Nothing is cached
// and nothing is retried; failures surface as *LookupFailedError.
package tfs
