package logging

import "strings"

// MaxLogFieldLength caps the size of free-form log fields such as captured
// command output.
const MaxLogFieldLength = 1024

// Truncate shortens s to MaxLogFieldLength, appending "..." when trimmed.
func Truncate(s string) string {
	return TruncateN(s, MaxLogFieldLength)
}

// TruncateN shortens s to at most n bytes, appending "..." when trimmed.
func TruncateN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// EscapeNewlines replaces newlines so multi-line output stays on one log line.
func EscapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
