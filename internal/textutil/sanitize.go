package textutil

import "strings"

// titleReplacer neutralizes characters that Slack treats as link syntax
// inside <url|label> markup.
var titleReplacer = strings.NewReplacer(
	">", "_",
)

// SanitizeTitle makes a work item title safe to embed as a Slack link label.
// Every ">" becomes "_"; all other characters pass through unchanged.
func SanitizeTitle(title string) string {
	return titleReplacer.Replace(title)
}

// PathToURL converts a TFS area or iteration path into a URL path segment by
// swapping backslash separators for forward slashes.
func PathToURL(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// Redact masks a secret for display, keeping only enough to recognize it.
func Redact(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return "****"
	default:
		return value[:2] + strings.Repeat("*", 6) + value[len(value)-2:]
	}
}
