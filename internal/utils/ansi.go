// Package utils holds small text helpers shared by the console and the
// orchestrator.
package utils

import (
	"regexp"
	"strings"
)

// Covers CSI sequences (colors, cursor movement) and OSC sequences
// terminated by BEL or ST (window titles, hyperlinks).
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SanitizeOutput removes ANSI codes and other control characters (except
// newlines and tabs) so command output can be shown and sent to the model.
func SanitizeOutput(s string) string {
	s = StripANSI(s)
	return strings.Map(func(r rune) rune {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
