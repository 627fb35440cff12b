package util

import "unicode/utf8"

// Preview returns at most limit runes of s and reports whether it was cut.
func Preview(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}
