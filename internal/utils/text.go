package utils

import "unicode/utf8"

// Head returns the first n runes of s and whether anything was cut.
func Head(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// Ellipsize cuts s to n runes and appends "..." when it was longer.
func Ellipsize(s string, n int) string {
	head, cut := Head(s, n)
	if cut {
		return head + "..."
	}
	return head
}
