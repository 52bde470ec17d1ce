package utils

import "strings"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// NormalizeSpace collapses all runs of whitespace in s to single spaces and
// trims the ends. Extracted PDF text and stored clause text rarely agree on
// whitespace, so matching always goes through this first.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
