package history

import "unicode/utf8"

// maxStoredError caps the error text kept per run; driver errors can embed whole call logs.
const maxStoredError = 2000

// Excerpt truncates s to at most maxLen runes, marking the cut with "...".
func Excerpt(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 50
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
