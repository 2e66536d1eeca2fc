// Package services defines shared utilities consumed by the relay pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified at the HTTP boundary (caller mistake vs upstream failure).
//
// The tfs subpackage holds the work-item query client.
package services
