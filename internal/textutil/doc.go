// Package textutil provides small string helpers shared by the message
// composer and the CLI.
//
// SanitizeTitle escapes Slack link syntax in work item titles, PathToURL turns
// TFS area paths into URL segments, and Redact masks secrets before they are
// printed.
package textutil
