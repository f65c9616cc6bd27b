package checker

import "strings"

const ellipsis = "..."

// CleanTitle flattens line breaks and truncates the title to maxLen runes,
// appending an ellipsis when anything was cut. A non-positive maxLen disables
// truncation. Invalid UTF-8 is replaced with U+FFFD.
func CleanTitle(raw string, maxLen int) string {
	title := strings.ToValidUTF8(raw, "\uFFFD")
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", "")
	title = strings.TrimSpace(title)
	if maxLen <= 0 {
		return title
	}
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + ellipsis
}
